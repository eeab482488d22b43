package state

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"forgedeck/internal/dispatch"
	"forgedeck/internal/forge"
)

func successMsg(epoch uint64, key forge.ResourceKey, payload any) dispatch.Message {
	return dispatch.Message{
		Epoch:     epoch,
		Outcome:   dispatch.Success,
		Key:       key,
		Payload:   payload,
		FetchedAt: time.Now(),
	}
}

func failureMsg(epoch uint64, key forge.ResourceKey, err error) dispatch.Message {
	return dispatch.Message{Epoch: epoch, Outcome: dispatch.Failure, Key: key, Err: err}
}

func somePulls(titles ...string) forge.Paged[forge.PullSummary] {
	var items []forge.PullSummary
	for i, title := range titles {
		items = append(items, forge.PullSummary{Number: i + 1, Title: title, State: forge.PullOpen, Author: "mira"})
	}
	return forge.Paged[forge.PullSummary]{Items: items}
}

func someRepos(names ...string) forge.Paged[forge.Repository] {
	var items []forge.Repository
	for _, name := range names {
		items = append(items, forge.Repository{Owner: "acme", Name: name})
	}
	return forge.Paged[forge.Repository]{Items: items}
}

// atRepoView walks a fresh state to the pulls tab of acme/widgets.
func atRepoView(t *testing.T) AppState {
	t.Helper()
	s, _ := Initial("github")
	s, _ = Transition(s, successMsg(0, HomeKey("github"), forge.HomeData{}))
	s, _ = Transition(s, GoRepoList{})
	s, _ = Transition(s, successMsg(s.Epoch, RepoListKey("github"), someRepos("widgets")))
	s, cmds := Transition(s, OpenSelected{})
	if len(cmds) != 1 {
		t.Fatalf("opening a repo must fetch its pull list, got %v", cmds)
	}
	return s
}

func stateDiff(a, b AppState) string {
	return cmp.Diff(a, b, cmpopts.EquateComparable(forge.ResourceKey{}))
}

func TestInitialStateFetchesHome(t *testing.T) {
	s, cmds := Initial("github")
	if s.Epoch != 0 {
		t.Fatalf("fresh state must start at epoch 0, got %d", s.Epoch)
	}
	if s.Top().Kind != ScreenHome || !s.Top().Loading {
		t.Fatalf("fresh state must show a loading home screen: %+v", s.Top())
	}
	if len(cmds) != 1 {
		t.Fatalf("expected one initial fetch, got %v", cmds)
	}
	fetch, ok := cmds[0].(dispatch.Fetch)
	if !ok || fetch.Key.Kind != forge.KindHome {
		t.Fatalf("initial command must fetch the home aggregate: %v", cmds[0])
	}
}

func TestStaleEpochResultIsDiscarded(t *testing.T) {
	s, _ := Initial("github")
	s, _ = Transition(s, GoRepoList{})
	if s.Epoch != 1 {
		t.Fatalf("navigation must bump the epoch, got %d", s.Epoch)
	}

	// A result issued before the navigation lands now.
	late := successMsg(0, HomeKey("github"), forge.HomeData{
		MyPulls: []forge.MyPull{{Number: 1, Title: "late arrival"}},
	})
	next, cmds := Transition(s, late)

	if diff := stateDiff(s, next); diff != "" {
		t.Fatalf("stale result must leave the state untouched:\n%s", diff)
	}
	if cmds != nil {
		t.Fatalf("stale result must not issue commands: %v", cmds)
	}
}

func TestNavigationScenarioDiscardsInFlightFetch(t *testing.T) {
	// Fetch issued at epoch 0, user navigates twice, then the old result
	// arrives: the screens pushed meanwhile must be unaffected.
	s, _ := Initial("github")
	s, _ = Transition(s, GoRepoList{})
	s, _ = Transition(s, successMsg(1, RepoListKey("github"), someRepos("widgets")))
	s, _ = Transition(s, OpenSelected{})
	if s.Epoch != 2 || s.Top().Kind != ScreenRepoView {
		t.Fatalf("expected repo view at epoch 2: %+v", s.Top())
	}

	old := successMsg(0, HomeKey("github"), forge.HomeData{})
	next, _ := Transition(s, old)
	if diff := stateDiff(s, next); diff != "" {
		t.Fatalf("epoch-0 result applied at epoch 2:\n%s", diff)
	}
}

func TestFetchSuccessPopulatesScreen(t *testing.T) {
	s := atRepoView(t)
	key := s.Top().Key

	s, _ = Transition(s, successMsg(s.Epoch, key, somePulls("one", "two")))

	if s.Top().Loading {
		t.Fatalf("fetch success must clear the loading flag")
	}
	v, ok := s.Payload(key)
	if !ok {
		t.Fatalf("payload missing after success")
	}
	if len(v.(forge.Paged[forge.PullSummary]).Items) != 2 {
		t.Fatalf("wrong payload stored: %+v", v)
	}
}

func TestFailureBecomesStatusLine(t *testing.T) {
	s := atRepoView(t)
	key := s.Top().Key

	s, _ = Transition(s, failureMsg(s.Epoch, key, forge.Errorf(forge.ErrAuth, "bad credentials")))

	top := s.Top()
	if top.Loading {
		t.Fatalf("failure must clear the loading flag")
	}
	if top.Status != "authentication failed, check your token" {
		t.Fatalf("unexpected status: %q", top.Status)
	}
	if _, ok := s.Payload(key); ok {
		t.Fatalf("failure must not store a payload")
	}
}

func TestRateLimitStatusIncludesRetryAfter(t *testing.T) {
	s := atRepoView(t)
	err := forge.Errorf(forge.ErrRateLimited, "slow down")
	err.RetryAfter = 30 * time.Second

	s, _ = Transition(s, failureMsg(s.Epoch, s.Top().Key, err))
	if s.Top().Status != "rate limited, retry in 30s" {
		t.Fatalf("unexpected status: %q", s.Top().Status)
	}
}

func TestTabSwitchBumpsEpochAndFetches(t *testing.T) {
	s := atRepoView(t)
	before := s.Epoch

	s, cmds := Transition(s, NextTab{})

	if s.Top().Tab != TabIssues {
		t.Fatalf("expected issues tab, got %v", s.Top().Tab)
	}
	if s.Epoch != before+1 {
		t.Fatalf("tab switch changes the focused entity and must bump the epoch")
	}
	if len(cmds) != 1 {
		t.Fatalf("tab switch must fetch the new tab's list: %v", cmds)
	}
	if cmds[0].(dispatch.Fetch).Key.Kind != forge.KindIssueList {
		t.Fatalf("wrong fetch target: %v", cmds[0])
	}
}

func TestBackPopsAndBumpsEpoch(t *testing.T) {
	s := atRepoView(t)
	depth, epoch := s.Depth(), s.Epoch

	s, _ = Transition(s, Back{})
	if s.Depth() != depth-1 || s.Epoch != epoch+1 {
		t.Fatalf("pop must shrink the stack and bump the epoch: depth=%d epoch=%d", s.Depth(), s.Epoch)
	}

	// Popping the last screen is a no-op.
	s, _ = Transition(s, GoHome{})
	epoch = s.Epoch
	s, _ = Transition(s, Back{})
	if s.Depth() != 1 || s.Epoch != epoch {
		t.Fatalf("popping the root must change nothing")
	}
}

func TestPaginationAppends(t *testing.T) {
	s := atRepoView(t)
	key := s.Top().Key
	first := somePulls("one", "two")
	first.HasMore = true
	s, _ = Transition(s, successMsg(s.Epoch, key, first))

	s, cmds := Transition(s, LoadMore{})
	if !s.Top().LoadingMore {
		t.Fatalf("load more must mark the screen")
	}
	page := cmds[0].(dispatch.FetchPage)
	if page.Page != 2 {
		t.Fatalf("expected page 2 request, got %d", page.Page)
	}

	msg := successMsg(s.Epoch, key, somePulls("three"))
	msg.Page = 2
	s, _ = Transition(s, msg)

	v, _ := s.Payload(key)
	items := v.(forge.Paged[forge.PullSummary]).Items
	if len(items) != 3 {
		t.Fatalf("page 2 must append, got %d items", len(items))
	}
	if s.Top().LoadingMore || s.Top().Page != 2 {
		t.Fatalf("pagination bookkeeping wrong: %+v", s.Top())
	}
}

func TestRefreshForcesFetches(t *testing.T) {
	s := atRepoView(t)

	s, cmds := Transition(s, Refresh{})
	if len(cmds) != 1 {
		t.Fatalf("expected one forced fetch, got %v", cmds)
	}
	fetch := cmds[0].(dispatch.Fetch)
	if !fetch.Force {
		t.Fatalf("manual refresh must force past the cache")
	}
	if !s.Top().Loading {
		t.Fatalf("refresh must mark the screen loading")
	}
}

func TestMutationConfirmationRefetches(t *testing.T) {
	s := atRepoView(t)
	key := s.Top().Key
	s, _ = Transition(s, successMsg(s.Epoch, key, somePulls("one")))
	s, _ = Transition(s, OpenSelected{})
	if s.Top().Kind != ScreenPullDetail {
		t.Fatalf("expected pull detail: %+v", s.Top())
	}

	done := dispatch.Message{
		Epoch:    s.Epoch,
		Outcome:  dispatch.Success,
		Key:      s.Top().Key,
		Mutation: &dispatch.Mutation{Kind: dispatch.MutateMergePull},
	}
	s, cmds := Transition(s, done)

	if s.Top().Status != "merge done" {
		t.Fatalf("unexpected confirmation: %q", s.Top().Status)
	}
	if len(cmds) != 2 {
		t.Fatalf("merge confirmation must refetch detail and checks: %v", cmds)
	}
}

func TestSearchFiltersSelection(t *testing.T) {
	s := atRepoView(t)
	key := s.Top().Key
	s, _ = Transition(s, successMsg(s.Epoch, key, somePulls("fix parser", "add cache", "fix tui")))

	s, _ = Transition(s, StartSearch{})
	s, _ = Transition(s, SetSearch{Term: "fix"})
	s, _ = Transition(s, EndSearch{Keep: true})

	if got := s.topListLen(); got != 2 {
		t.Fatalf("filtered length: got %d want 2", got)
	}

	// Second visible item is "fix tui" (#3), not "add cache" (#2).
	s, _ = Transition(s, MoveCursor{Delta: 1})
	s, cmds := Transition(s, OpenSelected{})
	if s.Top().Kind != ScreenPullDetail {
		t.Fatalf("expected pull detail: %+v", s.Top())
	}
	if s.Top().Key.ID != "3" {
		t.Fatalf("filtered cursor resolved to the wrong pull: %s", s.Top().Key.ID)
	}
	if len(cmds) != 2 {
		t.Fatalf("detail open must fetch detail and checks: %v", cmds)
	}
}

func TestToggleDiffFetchesOnce(t *testing.T) {
	s := atRepoView(t)
	key := s.Top().Key
	s, _ = Transition(s, successMsg(s.Epoch, key, somePulls("one")))
	s, _ = Transition(s, OpenSelected{})

	s, cmds := Transition(s, ToggleDiff{})
	if !s.Top().ShowDiff {
		t.Fatalf("diff must be shown")
	}
	if len(cmds) != 1 || cmds[0].(dispatch.Fetch).Key.Kind != forge.KindPullDiff {
		t.Fatalf("first toggle must fetch the diff: %v", cmds)
	}

	diffKey := cmds[0].(dispatch.Fetch).Key
	s, _ = Transition(s, successMsg(s.Epoch, diffKey, "diff text"))
	s, _ = Transition(s, ToggleDiff{})
	s, cmds = Transition(s, ToggleDiff{})
	if len(cmds) != 0 {
		t.Fatalf("re-showing a loaded diff must not refetch: %v", cmds)
	}
}

func TestSideEffectEventsPassThrough(t *testing.T) {
	s, _ := Initial("github")

	_, cmds := Transition(s, OpenURL{URL: "https://example.test/x"})
	if cmds[0].(dispatch.OpenExternal).URL != "https://example.test/x" {
		t.Fatalf("open url mangled: %v", cmds[0])
	}

	_, cmds = Transition(s, CopyText{Text: "sha123"})
	if cmds[0].(dispatch.CopyClipboard).Text != "sha123" {
		t.Fatalf("copy text mangled: %v", cmds[0])
	}
}

func TestMutationEventsTargetFocusedResource(t *testing.T) {
	s := atRepoView(t)
	key := s.Top().Key
	s, _ = Transition(s, successMsg(s.Epoch, key, somePulls("one")))
	s, _ = Transition(s, OpenSelected{})

	_, cmds := Transition(s, MergePull{Method: forge.MergeSquash})
	mut := cmds[0].(dispatch.Mutate)
	if mut.Op.Kind != dispatch.MutateMergePull || mut.Op.Method != forge.MergeSquash {
		t.Fatalf("wrong mutation: %+v", mut.Op)
	}
	if mut.Key.Kind != forge.KindPullDetail || mut.Key.ID != "1" {
		t.Fatalf("mutation must target the focused pull: %+v", mut.Key)
	}

	_, cmds = Transition(s, SubmitComment{Body: "lgtm"})
	if cmds[0].(dispatch.Mutate).Op.Body != "lgtm" {
		t.Fatalf("comment body lost: %+v", cmds[0])
	}
}
