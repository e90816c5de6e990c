// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like MARKET_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the environment when the yaml left
// them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Market.APIKey == "" {
		if val := os.Getenv("MARKET_API_KEY"); val != "" {
			cfg.Market.APIKey = val
		}
	}
	if cfg.Completion.APIKey == "" {
		if val := os.Getenv("OPENAI_API_KEY"); val != "" {
			cfg.Completion.APIKey = val
		}
	}
	if cfg.Agent.APIKey == "" {
		if val := os.Getenv("AGENT_API_KEY"); val != "" {
			cfg.Agent.APIKey = val
		}
	}
	if cfg.Cache.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Cache.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Market.Timeout == 0 {
		cfg.Market.Timeout = 10000
	}
	if cfg.Market.AwardedProposalCode == "" {
		cfg.Market.AwardedProposalCode = "awarded"
	}
	if cfg.Market.ResolvedInstanceCode == "" {
		cfg.Market.ResolvedInstanceCode = "resolved"
	}

	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4"
	}
	if cfg.Completion.WeakModel == "" {
		cfg.Completion.WeakModel = "gpt-4o-mini"
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 60000
	}

	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = 300000
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 24
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "prompt-cache"
	}

	if cfg.Solver.Flow == "" {
		cfg.Solver.Flow = "reward"
	}
	if cfg.Solver.MaxCreditPerInstance == 0 {
		cfg.Solver.MaxCreditPerInstance = 1.0
	}
	if cfg.Solver.PollInterval == 0 {
		cfg.Solver.PollInterval = 60000
	}
	if cfg.Solver.ProposalWindow == 0 {
		cfg.Solver.ProposalWindow = 24
	}
	if cfg.Solver.MaxChatTurns == 0 {
		cfg.Solver.MaxChatTurns = 15
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9102"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Market.BaseURL == "" {
		return fmt.Errorf("market.base_url is required")
	}
	if cfg.Market.APIKey == "" {
		return fmt.Errorf("market.api_key is required")
	}
	if cfg.Completion.BaseURL == "" {
		return fmt.Errorf("completion.base_url is required")
	}

	switch cfg.Solver.Flow {
	case "reward", "review":
	default:
		return fmt.Errorf("solver.flow must be reward or review, got %q", cfg.Solver.Flow)
	}

	if cfg.Solver.Flow == "review" && cfg.Agent.BaseURL == "" {
		return fmt.Errorf("agent.base_url is required for the review flow")
	}

	if cfg.Cache.Backend == "redis" && cfg.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required for the redis backend")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
