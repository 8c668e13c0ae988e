package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"investai/internal/config"
	"investai/internal/finance"
	"investai/internal/tool"
	"investai/internal/tool/builtin"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubProvider struct{ err error }

func (p stubProvider) Historical(ctx context.Context, symbol string, since time.Time) ([]finance.Quote, error) {
	return nil, p.err
}

func (p stubProvider) Search(ctx context.Context, query string) (*finance.SearchResult, error) {
	return &finance.SearchResult{Quotes: []finance.Instrument{{Symbol: strings.ToUpper(query)}}}, p.err
}

func (p stubProvider) Insights(ctx context.Context, symbol string) (*finance.Insights, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &finance.Insights{Symbol: symbol, Recommendation: &finance.Recommendation{Rating: "BUY"}}, nil
}

// connectExport serves tools in memory and returns a client connected to them.
func connectExport(t *testing.T, tools []tool.Callable) *Client {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()

	ss, err := NewExportServer(tools).Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client, err := Connect(ctx, "yahoo", clientT)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestExportServer_ListsDataTools(t *testing.T) {
	client := connectExport(t, builtin.DataTools(stubProvider{}))

	var names []string
	for _, tl := range client.Tools() {
		names = append(names, tl.Name)
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"historicalprices", "stock_search", "stock_insights"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected %s in exported tools, got %v", want, names)
		}
	}
	if strings.Contains(joined, "answer") {
		t.Error("The terminal tool must not be exported")
	}
}

func TestToolAdapter_RoundTrip(t *testing.T) {
	client := connectExport(t, builtin.DataTools(stubProvider{}))

	var insights *mcp.Tool
	for _, tl := range client.Tools() {
		if tl.Name == builtin.StockInsightsName {
			insights = tl
		}
	}
	if insights == nil {
		t.Fatal("stock_insights not listed")
	}

	adapter := NewToolAdapter(client, insights)
	if adapter.Name() != "yahoo_stock_insights" {
		t.Errorf("Expected namespaced name, got %s", adapter.Name())
	}
	if adapter.Parameters()["type"] != "object" {
		t.Errorf("Expected object schema, got %v", adapter.Parameters())
	}

	res, err := adapter.Execute(context.Background(), json.RawMessage(`{"stock":"MSFT"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success || !strings.Contains(res.Output, `"rating":"BUY"`) {
		t.Errorf("Unexpected result: %+v", res)
	}
}

func TestToolAdapter_ToolErrorIsResult(t *testing.T) {
	client := connectExport(t, builtin.DataTools(stubProvider{err: errors.New("upstream down")}))

	var insights *mcp.Tool
	for _, tl := range client.Tools() {
		if tl.Name == builtin.StockInsightsName {
			insights = tl
		}
	}

	res, err := NewToolAdapter(client, insights).Execute(context.Background(), json.RawMessage(`{"stock":"MSFT"}`))
	if err != nil {
		t.Fatalf("Tool errors should come back as results: %v", err)
	}
	if res.Success || !strings.Contains(res.Error, "upstream down") {
		t.Errorf("Unexpected result: %+v", res)
	}
}

func TestManager_RegistersBeforeSeal(t *testing.T) {
	client := connectExport(t, builtin.DataTools(stubProvider{}))

	registry := tool.NewRegistry()
	if err := registry.Register(builtin.NewAnswerTool()); err != nil {
		t.Fatalf("register answer: %v", err)
	}
	m := NewManager(registry)
	if err := m.add(&Server{config: config.MCPServerConfig{Name: "yahoo"}, client: client}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := registry.Seal(); err != nil {
		t.Fatalf("Seal failed with imported tools: %v", err)
	}

	if _, err := registry.Get("yahoo_stock_search"); err != nil {
		t.Errorf("Imported tool missing: %v", err)
	}
	if err := registry.Validate("yahoo_stock_search", json.RawMessage(`{"searchquery":"tsla"}`)); err != nil {
		t.Errorf("Imported schema should validate: %v", err)
	}
	if got := m.ListServers(); len(got) != 1 || got[0] != "yahoo" {
		t.Errorf("Unexpected servers: %v", got)
	}
}

func TestManager_InitializeNothingEnabled(t *testing.T) {
	m := NewManager(tool.NewRegistry())
	err := m.Initialize(context.Background(), config.MCPConfig{Servers: []config.MCPServerConfig{
		{Name: "off", Transport: "stdio", Command: "does-not-exist", Disabled: true},
	}})
	if err != nil || m.ServerCount() != 0 {
		t.Fatalf("Disabled servers should be skipped, got %v", err)
	}
}
