package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"investai/internal/agent"
	"investai/internal/cli"
	"investai/internal/finance/yahoo"
	"investai/internal/llm"
	"investai/internal/mcp"
	"investai/internal/server"
	"investai/internal/storage"
	"investai/internal/tool"
	"investai/internal/tool/builtin"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(false)
	log.SetShowTime(true)
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, log, appOptions{allowMissingCredential: true})
	if err != nil {
		return err
	}
	defer a.Close()

	return server.New(a.runner(), cfg.LLM.CheckCredential, cfg.Server, log).Run(ctx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(false)

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, log, appOptions{confirmIn: bufio.NewScanner(os.Stdin)})
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.agent.Run(ctx, &agent.Input{
		Message: strings.Join(args, " "),
		Logger:  log,
	})
	if err != nil {
		log.Error("Agent execution failed: %v", err)
		return err
	}
	return renderer().RenderOutput(out)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(false)

	ctx, cancel := signalContext()
	defer cancel()

	in := bufio.NewScanner(os.Stdin)
	a, err := newApp(ctx, cfg, log, appOptions{confirmIn: in})
	if err != nil {
		return err
	}
	defer a.Close()

	r := renderer()
	var history []llm.Message
	fmt.Println("Ask about a stock. Type 'exit' to quit, 'reset' to forget the conversation.")
	for {
		fmt.Print("\n> ")
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "reset":
			history = nil
			fmt.Println("Conversation cleared.")
			continue
		}

		out, err := a.agent.Run(ctx, &agent.Input{
			Message: line,
			History: history,
			Logger:  log,
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			// a failed turn leaves the conversation as it was
			log.Error("Failed to process question: %v", err)
			continue
		}
		history = out.History
		if err := r.RenderOutput(out); err != nil {
			return err
		}
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol
	log := newLogger(true)

	ctx, cancel := signalContext()
	defer cancel()

	market := yahoo.NewClient(cfg.Finance.BaseURL, cfg.Finance.Timeout).WithUserAgent(cfg.Finance.UserAgent)
	registry := tool.NewRegistry()
	if err := builtin.Register(registry, market); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	if err := registry.Seal(); err != nil {
		return fmt.Errorf("seal tool registry: %w", err)
	}

	// the answer tool only makes sense inside a run
	tools := registry.Callables()
	log.Info("Serving %d tools over MCP stdio", len(tools))
	return mcp.ServeStdio(ctx, tools)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled {
		return fmt.Errorf("run store is disabled (store.enabled: false)")
	}

	store, err := storage.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), historyLen)
	if err != nil {
		return err
	}
	renderer().RenderRuns(runs)
	return nil
}

func renderer() *cli.Renderer {
	r := cli.NewRenderer(os.Stdout)
	r.SetColorMode(!noColor)
	return r
}
