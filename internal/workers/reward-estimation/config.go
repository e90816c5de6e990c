// internal/workers/reward-estimation/config.go
package rewardestimation

type Config struct {
	Model       string
	Temperature float64
}

func LoadConfig() *Config {
	return &Config{
		Model:       "gpt-4",
		Temperature: 0.3,
	}
}
