package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"investai/internal/errmodel"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"

	DefaultModel    = "mistralai/mistral-nemo:free"
	DefaultMaxSteps = 5
)

// Config represents the complete investai configuration
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Finance   FinanceConfig   `yaml:"finance"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Hooks     HooksConfig     `yaml:"hooks"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// LLMConfig selects and authenticates the language model gateway
type LLMConfig struct {
	Provider  string `yaml:"provider" validate:"oneof=openrouter openai gemini"`
	Model     string `yaml:"model"` // empty = provider default
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	APIKey    string `yaml:"api_key"`     // supports ${VAR}
	APIKeyEnv string `yaml:"api_key_env"` // defaults per provider

	// Temperature is sent only when set.
	Temperature *float32 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int      `yaml:"max_tokens" validate:"gte=0"`
}

// AgentConfig bounds a single run
type AgentConfig struct {
	MaxSteps      int    `yaml:"max_steps" validate:"gte=1,lte=50"`
	ParallelTools bool   `yaml:"parallel_tools"`
	SystemPrompt  string `yaml:"system_prompt"` // empty = built-in prompt
}

// FinanceConfig configures the market data provider
type FinanceConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
}

// StoreConfig configures the run audit log
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// TelemetryConfig configures tracing
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Stdout      bool   `yaml:"stdout"`
	ServiceName string `yaml:"service_name"`
}

// HooksConfig contains hook-related settings
type HooksConfig struct {
	// ToolConfirm asks the user before running the listed tools (CLI only)
	ToolConfirm []string `yaml:"tool_confirm"`
}

// MCPConfig contains MCP-specific settings
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig defines a single MCP server whose tools are imported
type MCPServerConfig struct {
	Name      string            `yaml:"name"`      // Unique server identifier
	Transport string            `yaml:"transport"` // "stdio" (only supported initially)
	Command   string            `yaml:"command"`   // Executable to run
	Args      []string          `yaml:"args"`      // Command arguments
	Env       map[string]string `yaml:"env"`       // Environment variables with ${VAR} support
	Disabled  bool              `yaml:"disabled"`  // Skip this server if true
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderOpenRouter,
		},
		Agent: AgentConfig{
			MaxSteps: DefaultMaxSteps,
		},
		Finance: FinanceConfig{
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			Addr:           ":3000",
			AllowedOrigins: []string{"*"},
			RequestTimeout: 2 * time.Minute,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "investai.db",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "investai",
		},
	}
}

// Load reads and parses the YAML config file on top of Default()
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.LLM.APIKey = ExpandEnv(cfg.LLM.APIKey)
	cfg.Store.Path = ExpandEnv(cfg.Store.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads config with fallback to default locations
// Checks: ./investai.yaml, ./configs/investai.yaml,
// ~/.config/investai/investai.yaml, /etc/investai/investai.yaml
func LoadWithDefaults() (*Config, error) {
	for _, loc := range searchPaths() {
		if _, err := os.Stat(loc); err == nil {
			return Load(loc)
		}
	}

	// No config found - defaults are a complete configuration
	return Default(), nil
}

func searchPaths() []string {
	locations := []string{
		"./investai.yaml",
		"./configs/investai.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "investai", "investai.yaml"))
	}
	return append(locations, "/etc/investai/investai.yaml")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks config correctness
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	// Check for duplicate server names
	names := make(map[string]bool)
	for i, server := range c.MCP.Servers {
		if server.Name == "" {
			return fmt.Errorf("server #%d: name cannot be empty", i+1)
		}

		if names[server.Name] {
			return fmt.Errorf("duplicate server name: %s", server.Name)
		}
		names[server.Name] = true

		if err := server.Validate(); err != nil {
			return fmt.Errorf("server %s: %w", server.Name, err)
		}
	}

	return nil
}

// Validate checks a single server config
func (s *MCPServerConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	// Server names prefix tool names, which must match ^[a-zA-Z0-9_-]+$
	for _, ch := range s.Name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-') {
			return fmt.Errorf("server name '%s' contains invalid character '%c' (only alphanumeric, underscore, and hyphen allowed)", s.Name, ch)
		}
	}

	if s.Transport == "" {
		return fmt.Errorf("transport is required")
	}

	if s.Transport != "stdio" {
		return fmt.Errorf("unsupported transport: %s (only 'stdio' is supported)", s.Transport)
	}

	if s.Command == "" {
		return fmt.Errorf("command is required")
	}

	return nil
}

// ModelName returns the configured model or the provider's default.
// An empty result lets the gateway choose.
func (l LLMConfig) ModelName() string {
	if l.Model != "" || l.Provider == ProviderGemini {
		return l.Model
	}
	if l.Provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return DefaultModel
}

// CredentialEnv is the environment variable holding the API key.
func (l LLMConfig) CredentialEnv() string {
	if l.APIKeyEnv != "" {
		return l.APIKeyEnv
	}
	switch l.Provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENROUTER_API_KEY"
	}
}

// ResolveAPIKey returns the configured key, falling back to CredentialEnv.
func (l LLMConfig) ResolveAPIKey() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	return os.Getenv(l.CredentialEnv())
}

// CheckCredential fails when no API key can be resolved. It is checked
// before any model round so callers can report it explicitly.
func (l LLMConfig) CheckCredential() error {
	if l.ResolveAPIKey() != "" {
		return nil
	}
	name := "OpenRouter"
	switch l.Provider {
	case ProviderOpenAI:
		name = "OpenAI"
	case ProviderGemini:
		name = "Gemini"
	}
	return errmodel.Config("missing_credential", fmt.Sprintf(
		"%s API key not configured. Please set %s in your environment variables.", name, l.CredentialEnv()))
}
