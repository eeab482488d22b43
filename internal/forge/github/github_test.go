package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"forgedeck/internal/forge"
)

func testAdapter(t *testing.T, handler http.Handler) *GitHub {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &GitHub{
		name: "github",
		host: "github.com",
		client: &client{
			base:  srv.URL,
			token: "test-token",
			http:  srv.Client(),
		},
	}
}

func TestListPullsMapsFields(t *testing.T) {
	merged := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/widgets/pulls", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "all", r.URL.Query().Get("state"))
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"number": 7, "title": "fix retry loop", "state": "closed",
				"merged_at": merged.Format(time.RFC3339),
				"user":      map[string]any{"login": "mira"},
			},
			{
				"number": 8, "title": "open change", "state": "open",
				"user": map[string]any{"login": "noor"},
			},
		})
	}))

	got, err := g.ListPulls(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	require.False(t, got.HasMore, "short page means no more pages")

	require.Equal(t, forge.PullMerged, got.Items[0].State, "merged_at set means merged, not closed")
	require.Equal(t, "mira", got.Items[0].Author)
	require.Equal(t, forge.PullOpen, got.Items[1].State)
}

func TestListPullsFullPageHasMore(t *testing.T) {
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pulls := make([]map[string]any, pageSize)
		for i := range pulls {
			pulls[i] = map[string]any{"number": i + 1, "state": "open", "user": map[string]any{"login": "x"}}
		}
		json.NewEncoder(w).Encode(pulls)
	}))
	got, err := g.ListPulls(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	require.True(t, got.HasMore)
}

func TestGetPullMapsStats(t *testing.T) {
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"number": 12, "title": "big change", "state": "open", "body": "## why\nbecause",
			"user":            map[string]any{"login": "mira"},
			"head":            map[string]any{"ref": "feature", "sha": "abc"},
			"base":            map[string]any{"ref": "main"},
			"additions":       10, "deletions": 3, "changed_files": 2,
			"commits": 4, "comments": 1, "review_comments": 2,
		})
	}))
	pr, err := g.GetPull(context.Background(), "acme", "widgets", 12)
	require.NoError(t, err)
	require.Equal(t, "feature", pr.HeadBranch)
	require.Equal(t, "main", pr.BaseBranch)
	require.Equal(t, 10, pr.Stats.Additions)
	require.Equal(t, 3, pr.Stats.Comments, "issue and review comments are combined")
}

func TestListIssuesDropsPullRequests(t *testing.T) {
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"number": 1, "title": "real issue", "state": "open", "user": map[string]any{"login": "a"}},
			{"number": 2, "title": "actually a pr", "state": "open",
				"user": map[string]any{"login": "b"}, "pull_request": map[string]any{}},
		})
	}))
	got, err := g.ListIssues(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, "real issue", got.Items[0].Title)
}

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		status  int
		headers map[string]string
		want    forge.ErrorKind
	}{
		{http.StatusUnauthorized, nil, forge.ErrAuth},
		{http.StatusNotFound, nil, forge.ErrNotFound},
		{http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, forge.ErrRateLimited},
		{http.StatusForbidden, nil, forge.ErrAuth},
		{http.StatusTooManyRequests, nil, forge.ErrRateLimited},
		{http.StatusInternalServerError, nil, forge.ErrNetwork},
	}
	for _, tc := range cases {
		g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range tc.headers {
				w.Header().Set(k, v)
			}
			w.WriteHeader(tc.status)
			json.NewEncoder(w).Encode(map[string]string{"message": "nope"})
		}))
		_, err := g.GetPull(context.Background(), "acme", "widgets", 1)
		require.Error(t, err, "status %d", tc.status)
		require.Equal(t, tc.want, forge.KindOf(err), "status %d", tc.status)
	}
}

func TestRateLimitRetryAfterHeader(t *testing.T) {
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := g.GetPull(context.Background(), "acme", "widgets", 1)

	var fe *forge.Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, 2*time.Minute, fe.RetryAfter)
}

func TestCheckStatusRollsUp(t *testing.T) {
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/pulls/5":
			json.NewEncoder(w).Encode(map[string]any{"head": map[string]any{"sha": "abc123"}})
		case "/repos/acme/widgets/commits/abc123/check-runs":
			json.NewEncoder(w).Encode(map[string]any{"check_runs": []map[string]any{
				{"status": "completed", "conclusion": "success"},
				{"status": "in_progress", "conclusion": ""},
			}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	status, err := g.CheckStatus(context.Background(), "acme", "widgets", 5)
	require.NoError(t, err)
	require.Equal(t, forge.ChecksPending, status, "incomplete runs dominate completed successes")
}

func TestWebURL(t *testing.T) {
	g := New("github", "github.com", "tok")
	require.Equal(t, "https://github.com/acme/widgets/pull/42",
		g.WebURL("acme", "widgets", forge.KindPullDetail, "42"))
	require.Equal(t, "https://github.com/acme/widgets/commit/abc",
		g.WebURL("acme", "widgets", forge.KindCommit, "abc"))
	require.Equal(t, "https://github.com/acme/widgets/actions",
		g.WebURL("acme", "widgets", forge.KindRunList, ""))
}

func TestSplitRepoURL(t *testing.T) {
	owner, name := splitRepoURL("https://api.github.com/repos/acme/widgets")
	require.Equal(t, "acme", owner)
	require.Equal(t, "widgets", name)
}
