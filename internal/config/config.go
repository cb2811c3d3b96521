// Package config loads worker and CLI settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/cache"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/constants"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/ratecontrol"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tracing"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

// EnvPrefix prefixes every environment override, e.g. DEEPRESEARCH_MODEL_NAME.
const EnvPrefix = "DEEPRESEARCH"

// Config is the full process configuration.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	ScopeModel ModelConfig      `mapstructure:"scope_model"`
	Search     SearchConfig     `mapstructure:"search"`
	Cache      cache.Config     `mapstructure:"cache"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Tracing    tracing.Config   `mapstructure:"tracing"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	// PromptsPath optionally overrides the embedded prompt catalogue.
	PromptsPath string `mapstructure:"prompts_path"`
}

// ModelConfig describes one OpenAI-compatible chat model.
type ModelConfig struct {
	Provider    string                `mapstructure:"provider"`
	BaseURL     string                `mapstructure:"base_url"`
	Name        string                `mapstructure:"name"`
	APIKey      string                `mapstructure:"api_key"`
	APIKeyEnv   string                `mapstructure:"api_key_env"`
	Temperature float64               `mapstructure:"temperature"`
	Timeout     time.Duration         `mapstructure:"timeout"`
	RateLimit   ratecontrol.RateLimit `mapstructure:"rate_limit"`
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	Enabled    bool                  `mapstructure:"enabled"`
	BaseURL    string                `mapstructure:"base_url"`
	APIKey     string                `mapstructure:"api_key"`
	APIKeyEnv  string                `mapstructure:"api_key_env"`
	MaxResults int                   `mapstructure:"max_results"`
	Timeout    time.Duration         `mapstructure:"timeout"`
	Summarize  bool                  `mapstructure:"summarize"`
	RateLimit  ratecontrol.RateLimit `mapstructure:"rate_limit"`
}

// TemporalConfig locates the Temporal frontend.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`

	// Worker concurrency; researchers run as child workflows so both matter.
	MaxConcurrentActivities int `mapstructure:"max_concurrent_activities"`
	MaxConcurrentWorkflows  int `mapstructure:"max_concurrent_workflows"`
}

// AdminConfig serves /metrics, /health and /ready.
type AdminConfig struct {
	Port int `mapstructure:"port"`
}

// SupervisorConfig holds the run defaults applied when a caller sets nothing.
type SupervisorConfig struct {
	MaxConcurrentResearchers int           `mapstructure:"max_concurrent_researchers"`
	MaxIterations            int           `mapstructure:"max_iterations"`
	MaxResearcherIterations  int           `mapstructure:"max_researcher_iterations"`
	FailurePolicy            string        `mapstructure:"failure_policy"`
	ModelTimeout             time.Duration `mapstructure:"model_timeout"`
	ToolTimeout              time.Duration `mapstructure:"tool_timeout"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Workflow converts the defaults into the workflow's run configuration.
func (s SupervisorConfig) Workflow() workflows.SupervisorConfig {
	return workflows.SupervisorConfig{
		MaxConcurrentResearchers: s.MaxConcurrentResearchers,
		MaxIterations:            s.MaxIterations,
		MaxResearcherIterations:  s.MaxResearcherIterations,
		FailurePolicy:            workflows.FailurePolicy(s.FailurePolicy),
		ModelTimeout:             s.ModelTimeout,
		ToolTimeout:              s.ToolTimeout,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", "openrouter")
	v.SetDefault("model.base_url", llm.DefaultBaseURL)
	v.SetDefault("model.name", llm.DefaultModel)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.api_key_env", "OPENROUTER_API_KEY")
	v.SetDefault("model.temperature", llm.DefaultTemperature)
	v.SetDefault("model.timeout", 2*time.Minute)
	v.SetDefault("model.rate_limit.rpm", 0)
	v.SetDefault("model.rate_limit.burst", 0)

	// Empty scope model fields fall back to the research model.
	v.SetDefault("scope_model.provider", "")
	v.SetDefault("scope_model.base_url", "")
	v.SetDefault("scope_model.name", "")
	v.SetDefault("scope_model.api_key", "")
	v.SetDefault("scope_model.api_key_env", "")
	v.SetDefault("scope_model.temperature", 0.0)
	v.SetDefault("scope_model.timeout", 0)
	v.SetDefault("scope_model.rate_limit.rpm", 0)
	v.SetDefault("scope_model.rate_limit.burst", 0)

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.base_url", tools.DefaultSearchURL)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.api_key_env", "TAVILY_API_KEY")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.summarize", true)
	v.SetDefault("search.rate_limit.rpm", 0)
	v.SetDefault("search.rate_limit.burst", 0)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.prefix", "deepresearch:tool:")

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", constants.TaskQueue)
	v.SetDefault("temporal.max_concurrent_activities", 10)
	v.SetDefault("temporal.max_concurrent_workflows", 10)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "deepresearch-worker")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	v.SetDefault("admin.port", 2112)

	v.SetDefault("supervisor.max_concurrent_researchers", workflows.DefaultMaxConcurrentResearchers)
	v.SetDefault("supervisor.max_iterations", workflows.DefaultMaxIterations)
	v.SetDefault("supervisor.max_researcher_iterations", workflows.DefaultMaxResearcherIterations)
	v.SetDefault("supervisor.failure_policy", string(workflows.FailureIsolate))
	v.SetDefault("supervisor.model_timeout", 5*time.Minute)
	v.SetDefault("supervisor.tool_timeout", 2*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("prompts_path", "")
}

// Load reads path (or $DEEPRESEARCH_CONFIG when path is empty) over the
// defaults, then applies DEEPRESEARCH_* environment overrides. A missing
// path means defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ScopeModel = cfg.scopeModel()
	return &cfg, nil
}

// scopeModel fills unset scope model fields from the research model. The
// temperature is not inherited.
func (c *Config) scopeModel() ModelConfig {
	s := c.ScopeModel
	if s.Provider == "" {
		s.Provider = c.Model.Provider
	}
	if s.BaseURL == "" {
		s.BaseURL = c.Model.BaseURL
	}
	if s.Name == "" {
		s.Name = c.Model.Name
	}
	if s.APIKey == "" && s.APIKeyEnv == "" {
		s.APIKey = c.Model.APIKey
		s.APIKeyEnv = c.Model.APIKeyEnv
	}
	if s.Timeout <= 0 {
		s.Timeout = c.Model.Timeout
	}
	if s.RateLimit.RPM <= 0 {
		s.RateLimit = c.Model.RateLimit
	}
	return s
}

// Validate rejects settings no run could succeed with. It makes no network
// calls.
func (c *Config) Validate() error {
	if _, err := c.Supervisor.Workflow().Normalize(); err != nil {
		return err
	}
	if c.Supervisor.MaxConcurrentResearchers < 1 {
		return &models.ConfigurationError{Setting: "supervisor.max_concurrent_researchers", Reason: "must be at least 1"}
	}
	if strings.TrimSpace(c.Temporal.HostPort) == "" {
		return &models.ConfigurationError{Setting: "temporal.host_port", Reason: "must not be empty"}
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		return &models.ConfigurationError{Setting: "admin.port", Reason: fmt.Sprintf("%d is not a valid port", c.Admin.Port)}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return &models.ConfigurationError{Setting: "cache.addr", Reason: "required when the cache is enabled"}
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return &models.ConfigurationError{Setting: "model.temperature", Reason: "must be between 0 and 2"}
	}
	return nil
}

// ResolveAPIKey returns the configured key, or the value of the environment
// variable named by api_key_env.
func (m ModelConfig) ResolveAPIKey() (string, error) {
	return resolveKey("model", m.APIKey, m.APIKeyEnv)
}

// ResolveAPIKey returns the search key the same way models resolve theirs.
func (s SearchConfig) ResolveAPIKey() (string, error) {
	return resolveKey("search", s.APIKey, s.APIKeyEnv)
}

func resolveKey(section, key, env string) (string, error) {
	if k := strings.TrimSpace(key); k != "" {
		return k, nil
	}
	if env != "" {
		if k := strings.TrimSpace(os.Getenv(env)); k != "" {
			return k, nil
		}
	}
	reason := "no API key configured"
	if env != "" {
		reason = fmt.Sprintf("no API key configured and $%s is unset", env)
	}
	return "", &models.ConfigurationError{Setting: section + ".api_key", Reason: reason}
}
