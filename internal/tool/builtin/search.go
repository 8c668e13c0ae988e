package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"investai/internal/finance"
	"investai/internal/tool"
)

type StockSearchInput struct {
	SearchQuery string `json:"searchquery" jsonschema_description:"Stock symbol"`
}

type StockSearchTool struct {
	provider finance.Provider
}

func NewStockSearchTool(provider finance.Provider) *StockSearchTool {
	return &StockSearchTool{provider: provider}
}

func (t *StockSearchTool) Name() string {
	return StockSearchName
}

func (t *StockSearchTool) Description() string {
	return "Retrives relevant news about a stock"
}

func (t *StockSearchTool) Parameters() map[string]any {
	return tool.SchemaFor[StockSearchInput]()
}

func (t *StockSearchTool) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	in, err := decode[StockSearchInput](params)
	if err != nil {
		return tool.Failure(err), nil
	}

	res, err := t.provider.Search(ctx, in.SearchQuery)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", in.SearchQuery, err)
	}

	result, err := tool.JSONResult(res)
	if err != nil {
		return nil, err
	}
	result.Data = map[string]any{"quotes": len(res.Quotes), "news": len(res.News)}
	return result, nil
}
