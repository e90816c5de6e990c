// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Market     MarketConfig     `mapstructure:"market"`
	Completion CompletionConfig `mapstructure:"completion"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Solver     SolverConfig     `mapstructure:"solver"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// MarketConfig holds settings for the marketplace HTTP API.
type MarketConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	APIKey               string `mapstructure:"api_key"`
	AwardedProposalCode  string `mapstructure:"awarded_proposal_code"`
	ResolvedInstanceCode string `mapstructure:"resolved_instance_code"`
	Timeout              int    `mapstructure:"timeout"` // milliseconds
}

// CompletionConfig holds settings for the completion provider.
type CompletionConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	WeakModel string `mapstructure:"weak_model"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// AgentConfig holds settings for the code-modification agent service.
type AgentConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// CacheConfig holds settings for the prompt/response cache.
type CacheConfig struct {
	Backend   string      `mapstructure:"backend"` // memory or redis
	TTLHours  int         `mapstructure:"ttl_hours"`
	KeyPrefix string      `mapstructure:"key_prefix"`
	Redis     RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SolverConfig holds the core polling and flow settings.
type SolverConfig struct {
	Flow                 string  `mapstructure:"flow"` // reward or review
	MaxCreditPerInstance float64 `mapstructure:"max_credit_per_instance"`
	PollInterval         int     `mapstructure:"poll_interval"`   // milliseconds
	ProposalWindow       int     `mapstructure:"proposal_window"` // hours
	MaxChatTurns         int     `mapstructure:"max_chat_turns"`
}

// MetricsConfig holds the metrics/pprof listen address.
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
