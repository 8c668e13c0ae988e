package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"investai/internal/config"
	"investai/internal/tool"
)

// Manager connects configured upstream MCP servers and registers their
// tools. It must run before the registry is sealed.
type Manager struct {
	servers  map[string]*Server
	registry *tool.Registry
	mu       sync.RWMutex
}

func NewManager(registry *tool.Registry) *Manager {
	return &Manager{
		servers:  make(map[string]*Server),
		registry: registry,
	}
}

// Initialize starts all enabled servers concurrently. It fails when every
// server fails; a partial failure is returned as an error alongside the
// servers that did load, and callers may treat it as a warning.
func (m *Manager) Initialize(ctx context.Context, cfg config.MCPConfig) error {
	var enabled []config.MCPServerConfig
	for _, s := range cfg.Servers {
		if !s.Disabled {
			enabled = append(enabled, s)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(enabled))
	for i, serverCfg := range enabled {
		wg.Add(1)
		go func(i int, cfg config.MCPServerConfig) {
			defer wg.Done()
			if err := m.startServer(ctx, cfg); err != nil {
				errs[i] = fmt.Errorf("server %s: %w", cfg.Name, err)
			}
		}(i, serverCfg)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}

	switch {
	case len(failed) == 0:
		return nil
	case len(failed) == len(enabled):
		return fmt.Errorf("all MCP servers failed to initialize: %v", failed)
	default:
		return fmt.Errorf("some MCP servers failed (loaded %d/%d): %v", len(enabled)-len(failed), len(enabled), failed)
	}
}

func (m *Manager) startServer(ctx context.Context, serverCfg config.MCPServerConfig) error {
	server, err := NewServer(ctx, serverCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := m.add(server); err != nil {
		server.Close()
		return err
	}
	return nil
}

// add registers every tool of server and tracks it for Close.
func (m *Manager) add(server *Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mcpTool := range server.Client().Tools() {
		adapter := NewToolAdapter(server.Client(), mcpTool)
		if err := m.registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", adapter.Name(), err)
		}
	}
	m.servers[server.Name()] = server
	return nil
}

// Close shuts down all MCP servers
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, server := range m.servers {
		if err := server.Close(); err != nil {
			errs = append(errs, fmt.Errorf("server %s: %w", name, err))
		}
	}
	m.servers = make(map[string]*Server)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing servers: %v", errs)
	}
	return nil
}

// ListServers returns the active server names, sorted.
func (m *Manager) ListServers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) ServerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.servers)
}
