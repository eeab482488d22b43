package gitea

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"forgedeck/internal/forge"
)

func testAdapter(t *testing.T, handler http.Handler) *Gitea {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Gitea{
		name: "gitea",
		host: "gitea.example.com",
		client: &client{
			base:  srv.URL,
			token: "test-token",
			http:  srv.Client(),
		},
	}
}

func TestListPullsMergedFlag(t *testing.T) {
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/widgets/pulls", r.URL.Path)
		require.Equal(t, "token test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"number": 3, "title": "landed", "state": "closed", "merged": true,
				"user": map[string]any{"login": "mira"}},
			{"number": 4, "title": "rejected", "state": "closed", "merged": false,
				"user": map[string]any{"login": "noor"}},
		})
	}))
	got, err := g.ListPulls(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	require.Equal(t, forge.PullMerged, got.Items[0].State)
	require.Equal(t, forge.PullClosed, got.Items[1].State)
}

func TestMergePullSendsMethod(t *testing.T) {
	var body map[string]string
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/repos/acme/widgets/pulls/3/merge", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.WriteHeader(http.StatusOK)
	}))
	require.NoError(t, g.MergePull(context.Background(), "acme", "widgets", 3, forge.MergeSquash))
	require.Equal(t, "squash", body["Do"])
}

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   forge.ErrorKind
	}{
		{http.StatusUnauthorized, forge.ErrAuth},
		{http.StatusForbidden, forge.ErrAuth},
		{http.StatusNotFound, forge.ErrNotFound},
		{http.StatusTooManyRequests, forge.ErrRateLimited},
		{http.StatusBadGateway, forge.ErrNetwork},
	}
	for _, tc := range cases {
		g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := g.GetPull(context.Background(), "acme", "widgets", 1)
		require.Error(t, err, "status %d", tc.status)
		require.Equal(t, tc.want, forge.KindOf(err), "status %d", tc.status)
	}
}

func TestCheckStatusUsesCombinedStatus(t *testing.T) {
	g := testAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/pulls/9":
			json.NewEncoder(w).Encode(map[string]any{"head": map[string]any{"sha": "ff00"}})
		case "/repos/acme/widgets/commits/ff00/status":
			json.NewEncoder(w).Encode(map[string]any{"state": "failure"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	status, err := g.CheckStatus(context.Background(), "acme", "widgets", 9)
	require.NoError(t, err)
	require.Equal(t, forge.ChecksFailure, status)
}

func TestHomeCapabilitiesAreUnsupported(t *testing.T) {
	g := New("gitea", "gitea.example.com", "tok")
	reqs, err := g.ReviewRequests(context.Background(), "mira")
	require.NoError(t, err)
	require.Empty(t, reqs)

	runs, err := g.ListRuns(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	require.Empty(t, runs.Items)
}
