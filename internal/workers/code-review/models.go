// internal/workers/code-review/models.go
package codereview

type Input struct {
	InstanceID      string `json:"instanceId"`
	Background      string `json:"background"`
	MessagesHistory string `json:"messagesHistory"`
}

type Output struct {
	Message string `json:"message"`
	Respond bool   `json:"respond"`
}

// PullRequestContext carries best-effort coordinates scraped from a hosted
// pull-request page. Every field may be empty; consumers must treat absence
// as a valid branch.
type PullRequestContext struct {
	PullRequestURL string
	IssueURL       string
	RepoURL        string
	ForkOwner      string
	Branch         string
}
