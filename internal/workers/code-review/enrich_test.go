// internal/workers/code-review/enrich_test.go
package codereview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prPage = `<html><body>
<a href="/acme/widget/issues/42">Fixes #42</a>
<span class="head-ref"><span>forker</span>:<span>fix/nil-check</span></span>
</body></html>`

func newTestEnricher(t *testing.T, server *httptest.Server) *Enricher {
	t.Helper()
	e := NewEnricher(time.Second, testLogger(t))
	if server != nil {
		e.hostOverride = server.URL
	}
	return e
}

func TestFromTranscript_NoLinkYieldsNil(t *testing.T) {
	e := newTestEnricher(t, nil)

	prCtx := e.FromTranscript(context.Background(), "requester: looks fine to me")

	assert.Nil(t, prCtx)
}

func TestFromTranscript_ScrapesIssueAndHeadRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/acme/widget/pull/7", r.URL.Path)
		w.Write([]byte(prPage))
	}))
	defer server.Close()

	e := newTestEnricher(t, server)

	prCtx := e.FromTranscript(context.Background(),
		"requester: opened https://github.com/acme/widget/pull/7 for review")

	require.NotNil(t, prCtx)
	assert.Equal(t, "https://github.com/acme/widget/pull/7", prCtx.PullRequestURL)
	assert.Equal(t, "https://github.com/acme/widget", prCtx.RepoURL)
	assert.Equal(t, "https://github.com/acme/widget/issues/42", prCtx.IssueURL)
	assert.Equal(t, "forker", prCtx.ForkOwner)
	assert.Equal(t, "fix/nil-check", prCtx.Branch)
}

func TestFromTranscript_FetchFailureDegradesToLinkOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := newTestEnricher(t, server)

	prCtx := e.FromTranscript(context.Background(),
		"requester: see https://github.com/acme/widget/pull/7")

	require.NotNil(t, prCtx)
	assert.Equal(t, "https://github.com/acme/widget/pull/7", prCtx.PullRequestURL)
	assert.Empty(t, prCtx.IssueURL)
	assert.Empty(t, prCtx.ForkOwner)
	assert.Empty(t, prCtx.Branch)
}

func TestFromTranscript_PageWithoutMarkersLeavesFieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>nothing useful</body></html>"))
	}))
	defer server.Close()

	e := newTestEnricher(t, server)

	prCtx := e.FromTranscript(context.Background(),
		"requester: see https://github.com/acme/widget/pull/7")

	require.NotNil(t, prCtx)
	assert.Empty(t, prCtx.IssueURL)
	assert.Empty(t, prCtx.Branch)
}

func TestForkOrRepoURL(t *testing.T) {
	withFork := &PullRequestContext{
		PullRequestURL: "https://github.com/acme/widget/pull/7",
		RepoURL:        "https://github.com/acme/widget",
		ForkOwner:      "forker",
		Branch:         "fix/nil-check",
	}
	assert.Equal(t, "https://github.com/forker/widget", withFork.forkOrRepoURL())

	withoutFork := &PullRequestContext{
		PullRequestURL: "https://github.com/acme/widget/pull/7",
		RepoURL:        "https://github.com/acme/widget",
	}
	assert.Equal(t, "https://github.com/acme/widget", withoutFork.forkOrRepoURL())
}
