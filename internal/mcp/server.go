package mcp

import (
	"context"
	"fmt"

	"investai/internal/config"
)

// Server is a running upstream MCP server and its client session.
type Server struct {
	config config.MCPServerConfig
	client *Client
}

// NewServer starts the configured server process and connects to it.
func NewServer(ctx context.Context, cfg config.MCPServerConfig) (*Server, error) {
	client, err := NewClient(ctx, cfg.Name, cfg.Command, cfg.Args, config.ExpandEnvMap(cfg.Env))
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	return &Server{
		config: cfg,
		client: client,
	}, nil
}

func (s *Server) Name() string {
	return s.config.Name
}

func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) Close() error {
	return s.client.Close()
}
