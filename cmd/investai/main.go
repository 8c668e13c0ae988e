package main

import (
	"fmt"
	"os"

	"investai/internal/config"
	"investai/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	apiBaseURL string
	apiKey     string
	model      string
	provider   string
	maxSteps   int
	verbose    bool
	noColor    bool
	historyLen int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "investai",
		Short:        "Stock question assistant",
		Long:         "Answers questions about stocks by calling market data tools and reporting how it reached the answer.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: search ./investai.yaml, ./configs, ~/.config/investai)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output (debug mode)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the market data tools over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the audit log",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLen, "limit", "n", 20, "Number of runs to show")

	for _, cmd := range []*cobra.Command{serveCmd, askCmd, chatCmd} {
		cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (default: provider environment variable)")
		cmd.Flags().StringVar(&apiBaseURL, "api-base-url", os.Getenv("OPENAI_API_BASE_URL"), "OpenAI-compatible API base URL")
		cmd.Flags().StringVar(&model, "model", "", "Model to use (default: provider default)")
		cmd.Flags().StringVar(&provider, "provider", "", "Model provider: openrouter, openai or gemini")
		cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Maximum model rounds per question")
	}

	rootCmd.AddCommand(serveCmd, askCmd, chatCmd, mcpCmd, historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadWithDefaults()
	}
	if err != nil {
		return nil, err
	}

	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if apiBaseURL != "" {
		cfg.LLM.BaseURL = apiBaseURL
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if maxSteps > 0 {
		cfg.Agent.MaxSteps = maxSteps
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(stderr bool) *logger.Logger {
	level := logger.LevelInfo
	if verbose {
		level = logger.LevelDebug
	}
	w := os.Stdout
	if stderr {
		w = os.Stderr
	}
	log := logger.NewLogger(w, level)
	if noColor {
		log.SetColorMode(false)
	}
	return log
}
