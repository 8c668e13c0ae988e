package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"investai/internal/finance"
	"investai/internal/tool"
)

type StockInsightsInput struct {
	Stock string `json:"stock" jsonschema_description:"Stock symbol"`
}

type StockInsightsTool struct {
	provider finance.Provider
}

func NewStockInsightsTool(provider finance.Provider) *StockInsightsTool {
	return &StockInsightsTool{provider: provider}
}

func (t *StockInsightsTool) Name() string {
	return StockInsightsName
}

func (t *StockInsightsTool) Description() string {
	return "Get the insights of a stock"
}

func (t *StockInsightsTool) Parameters() map[string]any {
	return tool.SchemaFor[StockInsightsInput]()
}

func (t *StockInsightsTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	in, err := decode[StockInsightsInput](params)
	if err != nil {
		return tool.Failure(err), nil
	}

	ins, err := t.provider.Insights(ctx, in.Stock)
	if err != nil {
		return nil, fmt.Errorf("insights for %s: %w", in.Stock, err)
	}
	return tool.JSONResult(ins)
}
