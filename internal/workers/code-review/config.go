// internal/workers/code-review/config.go
package codereview

type Config struct {
	AgentModel string
	WeakModel  string
}

func LoadConfig() *Config {
	return &Config{
		AgentModel: "gpt-4o",
		WeakModel:  "gpt-4o-mini",
	}
}
