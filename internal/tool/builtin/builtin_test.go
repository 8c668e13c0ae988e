package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"investai/internal/finance"
	"investai/internal/tool"
)

type fakeProvider struct {
	symbol string
	since  time.Time
	query  string
	err    error
}

func (f *fakeProvider) Historical(ctx context.Context, symbol string, since time.Time) ([]finance.Quote, error) {
	f.symbol, f.since = symbol, since
	if f.err != nil {
		return nil, f.err
	}
	return []finance.Quote{{Date: since, Close: 101.5, Volume: 1000}}, nil
}

func (f *fakeProvider) Search(ctx context.Context, query string) (*finance.SearchResult, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return &finance.SearchResult{
		Quotes: []finance.Instrument{{Symbol: "AAPL"}},
		News:   []finance.NewsItem{{Title: "Apple ships"}},
	}, nil
}

func (f *fakeProvider) Insights(ctx context.Context, symbol string) (*finance.Insights, error) {
	f.symbol = symbol
	if f.err != nil {
		return nil, f.err
	}
	return &finance.Insights{Symbol: symbol, Recommendation: &finance.Recommendation{Rating: "HOLD"}}, nil
}

func TestRegister_SealsWithAnswerAsTerminal(t *testing.T) {
	r := tool.NewRegistry()
	if err := Register(r, &fakeProvider{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Seal(); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if !r.IsTerminal(AnswerName) {
		t.Error("answer should be the terminal tool")
	}
	if len(r.Callables()) != 3 {
		t.Errorf("Expected 3 data tools, got %d", len(r.Callables()))
	}

	valid := map[string]string{
		HistoricalPricesName: `{"query":"AAPL","histqueryOptions":"2024-01-01"}`,
		StockSearchName:      `{"searchquery":"AAPL"}`,
		StockInsightsName:    `{"stock":"AAPL"}`,
		AnswerName:           `{"steps":[{"calculation":"1+1","reasoning":"sum"}],"answer":"2"}`,
	}
	for name, args := range valid {
		if err := r.Validate(name, json.RawMessage(args)); err != nil {
			t.Errorf("%s: valid arguments rejected: %v", name, err)
		}
	}
	if err := r.Validate(AnswerName, json.RawMessage(`{"answer":"2"}`)); err == nil {
		t.Error("answer without steps should be rejected")
	}
	if err := r.Validate(AnswerName, json.RawMessage(`{"steps":[{"calculation":"x"}],"answer":"2"}`)); err == nil {
		t.Error("step without reasoning should be rejected")
	}
	if err := r.Validate(HistoricalPricesName, json.RawMessage(`{"query":"AAPL"}`)); err == nil {
		t.Error("historicalprices without start date should be rejected")
	}
}

func TestHistoricalPricesTool_Execute(t *testing.T) {
	p := &fakeProvider{}
	res, err := NewHistoricalPricesTool(p).Execute(context.Background(),
		json.RawMessage(`{"query":"AAPL","histqueryOptions":"2024-03-01"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if p.symbol != "AAPL" || !p.since.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Provider called with %s %v", p.symbol, p.since)
	}
	if !res.Success || !strings.Contains(res.Output, "101.5") {
		t.Errorf("Unexpected result: %+v", res)
	}
	if res.Data["rows"] != 1 {
		t.Errorf("Expected rows=1, got %v", res.Data["rows"])
	}
}

func TestHistoricalPricesTool_BadDate(t *testing.T) {
	p := &fakeProvider{}
	res, err := NewHistoricalPricesTool(p).Execute(context.Background(),
		json.RawMessage(`{"query":"AAPL","histqueryOptions":"last tuesday"}`))
	if err != nil {
		t.Fatalf("Bad date should be a tool failure, not an error: %v", err)
	}
	if res.Success || !strings.Contains(res.Error, "YYYY-MM-DD") {
		t.Errorf("Unexpected result: %+v", res)
	}
	if p.symbol != "" {
		t.Error("Provider should not be called for an invalid date")
	}
}

func TestStockSearchTool_ProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("rate limited")}
	_, err := NewStockSearchTool(p).Execute(context.Background(), json.RawMessage(`{"searchquery":"tesla"}`))
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("Expected provider error, got %v", err)
	}
	if p.query != "tesla" {
		t.Errorf("Expected query tesla, got %q", p.query)
	}
}

func TestStockInsightsTool_Execute(t *testing.T) {
	res, err := NewStockInsightsTool(&fakeProvider{}).Execute(context.Background(), json.RawMessage(`{"stock":"MSFT"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(res.Output, `"rating":"HOLD"`) {
		t.Errorf("Unexpected output: %s", res.Output)
	}
}

func TestParseAnswer(t *testing.T) {
	in, err := ParseAnswer(json.RawMessage(`{"steps":[{"calculation":"190-185","reasoning":"change"}],"answer":"Up $5"}`))
	if err != nil {
		t.Fatalf("ParseAnswer failed: %v", err)
	}
	if in.Answer != "Up $5" || len(in.Steps) != 1 || in.Steps[0].Calculation != "190-185" {
		t.Errorf("Unexpected answer: %+v", in)
	}

	in, err = ParseAnswer(json.RawMessage(`{"answer":"x"}`))
	if err != nil || in.Steps == nil {
		t.Errorf("Missing steps should decode to an empty trail, got %+v, %v", in, err)
	}
}
