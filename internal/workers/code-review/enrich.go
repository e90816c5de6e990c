// internal/workers/code-review/enrich.go
package codereview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	apperrors "market-solver/internal/common/errors"
	"market-solver/internal/common/httpx"
)

var (
	pullRequestURLPattern = regexp.MustCompile(`https://github\.com/([\w.-]+)/([\w.-]+)/pull/\d+`)
	issueLinkPattern      = regexp.MustCompile(`href="(/[\w.-]+/[\w.-]+/issues/\d+)"`)
	headRefPattern        = regexp.MustCompile(`head-ref[^>]*>(?:<[^>]+>)*([\w.-]+)(?:</[^>]+>)*:(?:<[^>]+>)*([\w./-]+)<`)
)

// maxPageBytes bounds how much of a PR page is read during scraping.
const maxPageBytes = 2 << 20

// Enricher scrapes best-effort context from a hosted pull-request page. All
// extraction failures degrade to a smaller context, never to an error for
// the caller.
type Enricher struct {
	http   *httpx.Client
	logger Logger

	// hostOverride rewrites the github.com host before fetching. Tests point
	// it at a local server.
	hostOverride string
}

func NewEnricher(timeout time.Duration, log Logger) *Enricher {
	return &Enricher{
		http: httpx.NewClient(timeout),
		logger: log.With(map[string]interface{}{
			"component": "pr-enricher",
		}),
	}
}

// FromTranscript finds the first pull-request link in the transcript and
// scrapes its page. Returns nil when there is no link or nothing could be
// fetched.
func (e *Enricher) FromTranscript(ctx context.Context, messagesHistory string) *PullRequestContext {
	match := pullRequestURLPattern.FindStringSubmatch(messagesHistory)
	if match == nil {
		return nil
	}

	prURL, owner, repo := match[0], match[1], match[2]
	prCtx := &PullRequestContext{
		PullRequestURL: prURL,
		RepoURL:        fmt.Sprintf("https://github.com/%s/%s", owner, repo),
	}

	page, err := e.fetchPage(ctx, prURL)
	if err != nil {
		e.logger.Warn("could not fetch pull request page", map[string]interface{}{
			"url":   prURL,
			"error": apperrors.NewEnrichmentFailedError(err).Error(),
		})
		return prCtx
	}

	if issue := issueLinkPattern.FindSubmatch(page); issue != nil {
		prCtx.IssueURL = "https://github.com" + string(issue[1])
	} else {
		e.logger.Warn("no related issue link found on pull request page", map[string]interface{}{
			"url": prURL,
		})
	}

	if head := headRefPattern.FindSubmatch(page); head != nil {
		prCtx.ForkOwner = string(head[1])
		prCtx.Branch = string(head[2])
	} else {
		e.logger.Warn("no head branch coordinates found on pull request page", map[string]interface{}{
			"url": prURL,
		})
	}

	return prCtx
}

func (e *Enricher) fetchPage(ctx context.Context, url string) ([]byte, error) {
	if e.hostOverride != "" {
		url = strings.Replace(url, "https://github.com", e.hostOverride, 1)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// forkOrRepoURL prefers the contributor's fork when its coordinates were
// scraped, falling back to the base repository.
func (p *PullRequestContext) forkOrRepoURL() string {
	if p.ForkOwner != "" {
		if match := pullRequestURLPattern.FindStringSubmatch(p.PullRequestURL); match != nil {
			return fmt.Sprintf("https://github.com/%s/%s", p.ForkOwner, match[2])
		}
	}
	return p.RepoURL
}
