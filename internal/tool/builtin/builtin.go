// Package builtin holds the stock assistant's tool set: three read-only
// market data lookups and the terminal answer tool.
package builtin

import (
	"encoding/json"
	"fmt"

	"investai/internal/finance"
	"investai/internal/tool"
)

const (
	HistoricalPricesName = "historicalprices"
	StockSearchName      = "stock_search"
	StockInsightsName    = "stock_insights"
	AnswerName           = "answer"
)

// DataTools returns the market data tools backed by provider.
func DataTools(provider finance.Provider) []tool.Callable {
	return []tool.Callable{
		NewHistoricalPricesTool(provider),
		NewStockSearchTool(provider),
		NewStockInsightsTool(provider),
	}
}

// Register adds the data tools and the answer tool to r. The caller seals.
func Register(r *tool.Registry, provider finance.Provider) error {
	for _, t := range DataTools(provider) {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return r.Register(NewAnswerTool())
}

func decode[T any](params json.RawMessage) (T, error) {
	var in T
	if err := json.Unmarshal(params, &in); err != nil {
		return in, fmt.Errorf("invalid parameters: %w", err)
	}
	return in, nil
}
