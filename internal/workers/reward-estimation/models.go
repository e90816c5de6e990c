// internal/workers/reward-estimation/models.go
package rewardestimation

type Input struct {
	Background   string  `json:"background"`
	ChatMessages string  `json:"chatMessages"`
	MaxValue     float64 `json:"maxValue"`
}

type Output struct {
	Reward float64 `json:"reward"`
	Cached bool    `json:"cached"`
}
