package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"investai/internal/agent"
	"investai/internal/config"
	"investai/internal/finance/yahoo"
	"investai/internal/hook"
	"investai/internal/hook/handlers"
	llmprovider "investai/internal/llm/provider"
	"investai/internal/logger"
	"investai/internal/mcp"
	"investai/internal/storage"
	"investai/internal/telemetry"
	"investai/internal/tool"
	"investai/internal/tool/builtin"
)

// app holds everything a command needs to run the agent.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	agent    *agent.Agent
	store    *storage.Storage
	mcp      *mcp.Manager
	shutdown func(context.Context) error
}

type appOptions struct {
	// confirmIn enables tool confirmation prompts (CLI only)
	confirmIn *bufio.Scanner
	// allowMissingCredential builds everything but the agent when no API
	// key is configured, so the HTTP server can report it per request.
	allowMissingCredential bool
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: log}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown

	if err := cfg.LLM.CheckCredential(); err != nil {
		if !opts.allowMissingCredential {
			a.Close()
			return nil, err
		}
		log.Warn("%v", err)
		return a, nil
	}

	client, err := llmprovider.New(ctx, cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Debug("Using %s model %s", client.Provider(), client.Model())

	market := yahoo.NewClient(cfg.Finance.BaseURL, cfg.Finance.Timeout).WithUserAgent(cfg.Finance.UserAgent)

	registry := tool.NewRegistry()
	if err := builtin.Register(registry, market); err != nil {
		a.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	if len(cfg.MCP.Servers) > 0 {
		a.mcp = mcp.NewManager(registry)
		if err := a.mcp.Initialize(ctx, cfg.MCP); err != nil {
			log.Warn("MCP: %v", err)
		}
		if n := a.mcp.ServerCount(); n > 0 {
			log.Info("Connected %d MCP server(s): %v", n, a.mcp.ListServers())
		}
	}

	if err := registry.Seal(); err != nil {
		a.Close()
		return nil, fmt.Errorf("seal tool registry: %w", err)
	}
	log.Debug("Registered %d tools", len(registry.List()))

	a.agent, err = agent.New(client, registry, agent.Config{
		SystemPrompt:  cfg.Agent.SystemPrompt,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxSteps:      cfg.Agent.MaxSteps,
		ParallelTools: cfg.Agent.ParallelTools,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	hooks := hook.NewManager()
	if opts.confirmIn != nil && len(cfg.Hooks.ToolConfirm) > 0 {
		hooks.Register(handlers.NewToolConfirmHandler(opts.confirmIn, os.Stdout, cfg.Hooks.ToolConfirm...))
	}
	if cfg.Store.Enabled {
		store, err := storage.New(cfg.Store.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open run store: %w", err)
		}
		a.store = store
		hooks.Register(handlers.NewAuditHandler(store, client.Provider(), client.Model()))
	}
	a.agent.SetHookManager(hooks)

	return a, nil
}

// runner returns the agent, or nil when no credential is configured.
func (a *app) runner() agent.Runner {
	if a.agent == nil {
		return nil
	}
	return a.agent
}

func (a *app) Close() {
	if a.mcp != nil {
		if err := a.mcp.Close(); err != nil {
			a.log.Warn("Close MCP servers: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("Close run store: %v", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			a.log.Warn("Shutdown telemetry: %v", err)
		}
	}
}
