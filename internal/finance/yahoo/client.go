// Package yahoo implements finance.Provider against the public Yahoo Finance
// JSON endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"investai/internal/finance"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://query2.finance.yahoo.com"
	defaultAgent   = "Mozilla/5.0 (compatible; investai/1.0)"
)

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a Yahoo Finance client. Empty baseURL selects DefaultBaseURL,
// zero timeout means no client-side timeout beyond the request context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultAgent,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithUserAgent overrides the User-Agent header sent upstream.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("yahoo: %s: %s", e.Code, e.Description)
}

func (c *Client) Historical(ctx context.Context, symbol string, since time.Time) ([]finance.Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("yahoo: empty symbol")
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(since.Unix(), 10))
	q.Set("period2", strconv.FormatInt(time.Now().Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, resp.Chart.Error
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no price data for %s", symbol)
	}

	result := resp.Chart.Result[0]
	bars := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	quotes := make([]finance.Quote, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo emits null rows for non-trading days inside the range.
		if at(bars.Close, i) == nil {
			continue
		}
		quote := finance.Quote{
			Date:     time.Unix(ts, 0).UTC(),
			Open:     deref(at(bars.Open, i)),
			High:     deref(at(bars.High, i)),
			Low:      deref(at(bars.Low, i)),
			Close:    deref(at(bars.Close, i)),
			AdjClose: at(adj, i),
		}
		if v := at(bars.Volume, i); v != nil {
			quote.Volume = *v
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

type searchResponse struct {
	Quotes []finance.Instrument `json:"quotes"`
	News   []struct {
		UUID        string   `json:"uuid"`
		Title       string   `json:"title"`
		Publisher   string   `json:"publisher"`
		Link        string   `json:"link"`
		PublishTime int64    `json:"providerPublishTime"`
		Tickers     []string `json:"relatedTickers"`
	} `json:"news"`
}

func (c *Client) Search(ctx context.Context, query string) (*finance.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("yahoo: empty search query")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("quotesCount", "6")
	q.Set("newsCount", "8")

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", q, &resp); err != nil {
		return nil, err
	}

	result := &finance.SearchResult{
		Quotes: resp.Quotes,
		News:   make([]finance.NewsItem, 0, len(resp.News)),
	}
	for _, n := range resp.News {
		result.News = append(result.News, finance.NewsItem{
			UUID:        n.UUID,
			Title:       n.Title,
			Publisher:   n.Publisher,
			Link:        n.Link,
			PublishedAt: time.Unix(n.PublishTime, 0).UTC(),
			Tickers:     n.Tickers,
		})
	}
	return result, nil
}

type insightsResponse struct {
	Finance struct {
		Result *struct {
			Symbol         string `json:"symbol"`
			InstrumentInfo struct {
				TechnicalEvents struct {
					ShortTerm        *finance.Outlook `json:"shortTermOutlook"`
					IntermediateTerm *finance.Outlook `json:"intermediateTermOutlook"`
					LongTerm         *finance.Outlook `json:"longTermOutlook"`
				} `json:"technicalEvents"`
				Valuation *finance.Valuation `json:"valuation"`
			} `json:"instrumentInfo"`
			Recommendation *finance.Recommendation `json:"recommendation"`
			SigDevs        []finance.Development   `json:"sigDevs"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"finance"`
}

func (c *Client) Insights(ctx context.Context, symbol string) (*finance.Insights, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("yahoo: empty symbol")
	}

	q := url.Values{}
	q.Set("symbol", symbol)

	var resp insightsResponse
	if err := c.get(ctx, "/ws/insights/v2/finance/insights", q, &resp); err != nil {
		return nil, err
	}
	if resp.Finance.Error != nil {
		return nil, resp.Finance.Error
	}
	r := resp.Finance.Result
	if r == nil {
		return nil, fmt.Errorf("yahoo: no insights for %s", symbol)
	}

	return &finance.Insights{
		Symbol:              r.Symbol,
		ShortTermOutlook:    r.InstrumentInfo.TechnicalEvents.ShortTerm,
		IntermediateOutlook: r.InstrumentInfo.TechnicalEvents.IntermediateTerm,
		LongTermOutlook:     r.InstrumentInfo.TechnicalEvents.LongTerm,
		Valuation:           r.InstrumentInfo.Valuation,
		Recommendation:      r.Recommendation,
		SigDevs:             r.SigDevs,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("yahoo: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("yahoo: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Error bodies still carry the chart/finance error envelope when available.
		if err := json.Unmarshal(body, out); err == nil {
			if e := envelopeError(out); e != nil {
				return e
			}
		}
		return fmt.Errorf("yahoo: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo: decode %s: %w", path, err)
	}
	return nil
}

func envelopeError(v any) error {
	switch r := v.(type) {
	case *chartResponse:
		if r.Chart.Error != nil {
			return r.Chart.Error
		}
	case *insightsResponse:
		if r.Finance.Error != nil {
			return r.Finance.Error
		}
	}
	return nil
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
