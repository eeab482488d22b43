package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"forgedeck/internal/cache"
	"forgedeck/internal/dispatch"
	"forgedeck/internal/forge"
	"forgedeck/internal/state"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	reg := forge.NewRegistry()
	cm := cache.NewManager(filepath.Join(t.TempDir(), "cache.db"), cache.DefaultTTLs(), nil)
	t.Cleanup(func() { cm.Close() })
	d := dispatch.New(reg, cm, nil)
	a := New("github", reg, d, nil)
	a.initCmds = nil // tests feed results directly
	return a
}

func keyMsg(s string) tea.Msg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func homeResult(epoch uint64) resultMsg {
	return resultMsg{m: dispatch.Message{
		Epoch:   epoch,
		Outcome: dispatch.Success,
		Key:     state.HomeKey("github"),
		Payload: forge.HomeData{
			ReviewRequests: []forge.ReviewRequest{
				{RepoOwner: "acme", RepoName: "widgets", Number: 1, Title: "first", Author: "mira"},
				{RepoOwner: "acme", RepoName: "widgets", Number: 2, Title: "second", Author: "noor"},
			},
		},
		FetchedAt: time.Now(),
	}}
}

func TestAdmittedResultPopulatesHome(t *testing.T) {
	a := newTestApp(t)
	a.Update(homeResult(0))

	if _, ok := homePayload(a.state); !ok {
		t.Fatalf("admitted result must populate the home payload")
	}
	if !strings.Contains(a.View(), "first") {
		t.Fatalf("home view must render loaded review requests")
	}
}

func TestStaleResultIsDropped(t *testing.T) {
	a := newTestApp(t)
	a.Update(keyMsg("e")) // push repo list, epoch 1

	a.Update(homeResult(0))
	if _, ok := homePayload(a.state); ok {
		t.Fatalf("result issued before navigation must be dropped at the gate")
	}
}

func TestCursorKeysMoveSelection(t *testing.T) {
	a := newTestApp(t)
	a.Update(homeResult(0))

	a.Update(keyMsg("j"))
	if got := a.state.Top().Selected; got != 1 {
		t.Fatalf("j must move the cursor down: %d", got)
	}
	a.Update(keyMsg("j")) // clamped at the last item
	if got := a.state.Top().Selected; got != 1 {
		t.Fatalf("cursor must clamp to the list: %d", got)
	}
	a.Update(keyMsg("k"))
	if got := a.state.Top().Selected; got != 0 {
		t.Fatalf("k must move the cursor up: %d", got)
	}
}

func TestSearchModeCapturesKeys(t *testing.T) {
	a := newTestApp(t)
	a.Update(homeResult(0))

	a.Update(keyMsg("/"))
	if a.mode != modeSearch {
		t.Fatalf("slash must enter search mode")
	}
	a.Update(keyMsg("s"))
	a.Update(keyMsg("e"))
	if a.state.Search != "se" {
		t.Fatalf("typed keys must become the filter term, got %q", a.state.Search)
	}
	a.Update(keyMsg("esc"))
	if a.mode != modeNormal || a.state.Search != "" {
		t.Fatalf("esc must cancel the search")
	}
}

func TestViewRendersWithoutData(t *testing.T) {
	a := newTestApp(t)
	out := a.View()
	if !strings.Contains(out, "forgedeck") {
		t.Fatalf("header missing from view:\n%s", out)
	}
}

func TestScrollWindow(t *testing.T) {
	content := "a\nb\nc\nd\ne"
	if got := scrollWindow(content, 2, 2); got != "c\nd" {
		t.Fatalf("scroll slice wrong: %q", got)
	}
	if got := scrollWindow(content, 99, 2); got != "e" {
		t.Fatalf("overscroll must clamp to the last line: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("short strings pass through: %q", got)
	}
	if got := truncate("a very long title indeed", 10); len(got) > 12 {
		t.Fatalf("long strings must be cut: %q", got)
	}
}

func TestRelativeTime(t *testing.T) {
	if got := relativeTime(time.Now().Add(-2 * time.Hour)); got != "2h ago" {
		t.Fatalf("relative time: %q", got)
	}
	if got := relativeTime(time.Time{}); got != "" {
		t.Fatalf("zero time renders empty: %q", got)
	}
}
