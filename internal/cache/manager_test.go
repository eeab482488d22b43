package cache

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"forgedeck/internal/forge"
)

func testKey(kind forge.Kind, id string) forge.ResourceKey {
	return forge.ResourceKey{
		Provider: "github", Owner: "acme", Repo: "widgets", Kind: kind, ID: id,
	}
}

func testPulls() forge.Paged[forge.PullSummary] {
	return forge.Paged[forge.PullSummary]{
		Items: []forge.PullSummary{{
			Number: 12, Title: "speed up list rendering", State: forge.PullOpen,
			Author: "noor", UpdatedAt: time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC),
		}},
		HasMore: true,
	}
}

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	m := NewManager(path, DefaultTTLs(), nil)
	t.Cleanup(func() { m.Close() })
	return m, path
}

func TestManagerRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	key := testKey(forge.KindPullList, "")
	fetched := time.Now().Add(-time.Minute)

	m.Put(key, testPulls(), fetched)

	e, ok := m.Get(key)
	require.True(t, ok)
	require.Equal(t, testPulls(), e.Value)
	require.True(t, e.FetchedAt.Equal(fetched))
	require.False(t, m.Stale(e, fetched.Add(4*time.Minute)))
	require.True(t, m.Stale(e, fetched.Add(6*time.Minute)))
}

func TestManagerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := testKey(forge.KindPullList, "")
	fetched := time.Now().Truncate(time.Second)

	m1 := NewManager(path, DefaultTTLs(), nil)
	m1.Put(key, testPulls(), fetched)
	require.NoError(t, m1.Close())

	m2 := NewManager(path, DefaultTTLs(), nil)
	defer m2.Close()

	e, ok := m2.Get(key)
	require.True(t, ok, "entry must survive a process restart")
	require.Equal(t, testPulls(), e.Value)
	require.True(t, e.FetchedAt.Equal(fetched))
	require.Equal(t, 1, m2.Len(), "disk hit must populate the memory layer")
}

func TestManagerTTLTable(t *testing.T) {
	m, _ := newTestManager(t)
	require.Equal(t, time.Hour, m.TTLFor(forge.KindRepoList))
	require.Equal(t, 5*time.Minute, m.TTLFor(forge.KindPullList))
	require.Equal(t, 2*time.Minute, m.TTLFor(forge.KindPullDetail))
	require.Equal(t, 30*time.Second, m.TTLFor(forge.KindCheckStatus))
}

func TestManagerTTLOverride(t *testing.T) {
	ttls := DefaultTTLs().Merge(map[forge.Kind]time.Duration{
		forge.KindPullList: time.Minute,
	})
	m := NewManager(filepath.Join(t.TempDir(), "cache.db"), ttls, nil)
	defer m.Close()
	require.Equal(t, time.Minute, m.TTLFor(forge.KindPullList))
	require.Equal(t, time.Hour, m.TTLFor(forge.KindRepoList))
}

func TestManagerInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := testKey(forge.KindPullDetail, "12")

	m := NewManager(path, DefaultTTLs(), nil)
	m.Put(key, forge.PullRequest{Number: 12, Title: "x"}, time.Now())
	_, ok := m.Get(key)
	require.True(t, ok)

	m.Invalidate(key)
	_, ok = m.Get(key)
	require.False(t, ok, "invalidated entry must miss")
	require.NoError(t, m.Close())

	m2 := NewManager(path, DefaultTTLs(), nil)
	defer m2.Close()
	_, ok = m2.Get(key)
	require.False(t, ok, "invalidation must reach the disk layer")
}

func TestManagerNewerEntryWins(t *testing.T) {
	m, _ := newTestManager(t)
	key := testKey(forge.KindPullDetail, "12")
	newer := time.Now()
	older := newer.Add(-time.Minute)

	m.Put(key, forge.PullRequest{Number: 12, Title: "fresh"}, newer)
	m.Put(key, forge.PullRequest{Number: 12, Title: "slow writer"}, older)

	e, ok := m.Get(key)
	require.True(t, ok)
	require.Equal(t, "fresh", e.Value.(forge.PullRequest).Title)
	require.True(t, e.FetchedAt.Equal(newer))
}

func TestManagerCorruptRowIsMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := testKey(forge.KindPullList, "")

	m := NewManager(path, DefaultTTLs(), nil)
	m.Put(key, testPulls(), time.Now())
	require.NoError(t, m.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE entries SET payload = ? WHERE key = ?`, []byte("{truncated"), key.String())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	m2 := NewManager(path, DefaultTTLs(), nil)
	defer m2.Close()
	_, ok := m2.Get(key)
	require.False(t, ok, "corrupt row must degrade to a miss")
	_, ok = m2.Get(key)
	require.False(t, ok, "corrupt row must be dropped, not retried")
}

func TestManagerMemoryOnlyDegradation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent of the db path is a regular file, so the disk layer
	// cannot be created.
	m := NewManager(filepath.Join(blocker, "cache.db"), DefaultTTLs(), nil)
	defer m.Close()

	key := testKey(forge.KindPullList, "")
	m.Put(key, testPulls(), time.Now())
	e, ok := m.Get(key)
	require.True(t, ok, "memory-only manager must still serve reads")
	require.Equal(t, testPulls(), e.Value)
}
