package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"investai/internal/finance"
	"investai/internal/tool"
)

const dateLayout = "2006-01-02"

type HistoricalPricesInput struct {
	Query            string `json:"query" jsonschema_description:"Stock symbol"`
	HistQueryOptions string `json:"histqueryOptions" jsonschema_description:"Starting date (YYYY-MM-DD)"`
}

type HistoricalPricesTool struct {
	provider finance.Provider
}

func NewHistoricalPricesTool(provider finance.Provider) *HistoricalPricesTool {
	return &HistoricalPricesTool{provider: provider}
}

func (t *HistoricalPricesTool) Name() string {
	return HistoricalPricesName
}

func (t *HistoricalPricesTool) Description() string {
	return "Get past prices of a stock from today until a user specificed date"
}

func (t *HistoricalPricesTool) Parameters() map[string]any {
	return tool.SchemaFor[HistoricalPricesInput]()
}

func (t *HistoricalPricesTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	in, err := decode[HistoricalPricesInput](params)
	if err != nil {
		return tool.Failure(err), nil
	}

	since, err := parseDate(in.HistQueryOptions)
	if err != nil {
		return tool.Failure(err), nil
	}
	if since.After(time.Now()) {
		return tool.Failure(fmt.Errorf("start date %s is in the future", in.HistQueryOptions)), nil
	}

	quotes, err := t.provider.Historical(ctx, in.Query, since)
	if err != nil {
		return nil, fmt.Errorf("historical prices for %s: %w", in.Query, err)
	}

	result, err := tool.JSONResult(quotes)
	if err != nil {
		return nil, err
	}
	result.Data = map[string]any{"symbol": in.Query, "rows": len(quotes)}
	return result, nil
}

// parseDate accepts a calendar date and, leniently, a full timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", s)
}
