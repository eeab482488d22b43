package state

import (
	"errors"
	"fmt"

	"forgedeck/internal/dispatch"
	"forgedeck/internal/forge"
)

// Transition is the single state transition function. It consumes one
// reducer input, a task result or a UI event, and produces the next
// state plus the commands to execute. It performs no I/O and never blocks;
// a result whose epoch has been superseded leaves the state untouched.
func Transition(s AppState, msg Msg) (AppState, []dispatch.Command) {
	switch m := msg.(type) {
	case dispatch.Message:
		return applyMessage(s, m)
	case Event:
		return applyEvent(s, m)
	default:
		return s, nil
	}
}

// applyMessage folds a task result into the state. Errors become status
// text on the screens that display the affected key, never anything
// louder; a failed mutation changes nothing but that status line.
func applyMessage(s AppState, m dispatch.Message) (AppState, []dispatch.Command) {
	if m.Epoch != s.Epoch {
		// Superseded by navigation. Dropped, not deferred.
		return s, nil
	}
	next := s.clone()
	switch {
	case m.Outcome == dispatch.Notice:
		next.top().Status = m.Note

	case m.Outcome == dispatch.Failure:
		applyFailure(&next, m)

	case m.Mutation != nil:
		return applyMutationDone(next, m)

	case m.Page > 1:
		id := m.Key.String()
		next.Data[id] = appendPage(next.Data[id], m.Payload)
		next.screensFor(m.Key, func(scr *Screen) {
			scr.LoadingMore = false
			scr.Page = m.Page
			if more, ok := listHasMore(m.Payload); ok {
				scr.HasMore = more
			}
		})

	default:
		next.Data[m.Key.String()] = m.Payload
		next.screensFor(m.Key, func(scr *Screen) {
			if scr.Loading {
				scr.Loading = false
				scr.Status = ""
			}
			scr.Page = 1
			if more, ok := listHasMore(m.Payload); ok {
				scr.HasMore = more
			}
			if n, ok := listLen(m.Payload); ok && scr.Selected >= n {
				scr.Selected = max(0, n-1)
			}
		})
	}
	return next, nil
}

func applyFailure(next *AppState, m dispatch.Message) {
	status := failureStatus(m.Err)
	applied := false
	next.screensFor(m.Key, func(scr *Screen) {
		scr.Loading = false
		scr.LoadingMore = false
		scr.Status = status
		applied = true
	})
	if !applied {
		// Side-effect failures and mutation failures on keys no screen
		// shows still deserve a visible status line.
		scr := next.top()
		scr.Loading = false
		scr.Status = status
	}
}

func failureStatus(err error) string {
	if err == nil {
		return "failed"
	}
	switch forge.KindOf(err) {
	case forge.ErrAuth:
		return "authentication failed, check your token"
	case forge.ErrRateLimited:
		var fe *forge.Error
		if errors.As(err, &fe) && fe.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, retry in %s", fe.RetryAfter)
		}
		return "rate limited"
	case forge.ErrNotFound:
		return "not found"
	default:
		return err.Error()
	}
}

// applyMutationDone reports the confirmation and refetches what the user
// is looking at; the dispatcher already invalidated the touched cache
// keys, so these fetches go to the provider.
func applyMutationDone(next AppState, m dispatch.Message) (AppState, []dispatch.Command) {
	top := next.top()
	top.Status = m.Mutation.Kind.String() + " done"
	var cmds []dispatch.Command
	switch top.Kind {
	case ScreenPullDetail:
		top.Loading = true
		cmds = append(cmds,
			dispatch.Fetch{Key: top.Key},
			dispatch.Fetch{Key: checksKeyFor(top.Key)},
		)
	case ScreenRepoView:
		top.Loading = true
		cmds = append(cmds, dispatch.Fetch{Key: top.Key})
	}
	return next, cmds
}

// applyEvent handles user intents: navigation, cursor movement, search,
// and translating action requests into commands. Each push, pop, or
// replace that changes the focused entity bumps the epoch inside the same
// transition, before any command for the new focus is issued.
func applyEvent(s AppState, ev Event) (AppState, []dispatch.Command) {
	next := s.clone()
	switch e := ev.(type) {
	case GoHome:
		for next.Depth() > 1 {
			next.pop()
		}
		return next, nil

	case GoRepoList:
		key := RepoListKey(next.Provider)
		next.push(Screen{Kind: ScreenRepoList, Key: key, Loading: !next.has(key)})
		return next, []dispatch.Command{dispatch.Fetch{Key: key}}

	case Back:
		next.pop()
		return next, nil

	case OpenSelected:
		return openSelected(next)

	case NextTab:
		return switchTab(next, true)

	case PrevTab:
		return switchTab(next, false)

	case MoveCursor:
		moveCursor(&next, e.Delta)
		return next, nil

	case CursorTop:
		next.top().Selected = 0
		next.top().Scroll = 0
		return next, nil

	case CursorBottom:
		if n := next.topListLen(); n > 0 {
			next.top().Selected = n - 1
		}
		return next, nil

	case Scroll:
		scr := next.top()
		scr.Scroll = max(0, scr.Scroll+e.Delta)
		return next, nil

	case LoadMore:
		scr := next.top()
		if !scr.HasMore || scr.LoadingMore || scr.Loading {
			return next, nil
		}
		scr.LoadingMore = true
		page := max(scr.Page, 1) + 1
		return next, []dispatch.Command{dispatch.FetchPage{Key: scr.Key, Page: page}}

	case Refresh:
		scr := next.top()
		scr.Loading = true
		scr.Status = "refreshing…"
		var cmds []dispatch.Command
		for _, key := range refreshKeys(*scr) {
			cmds = append(cmds, dispatch.Fetch{Key: key, Force: true})
		}
		return next, cmds

	case ToggleDiff:
		scr := next.top()
		if scr.Kind != ScreenPullDetail {
			return next, nil
		}
		scr.ShowDiff = !scr.ShowDiff
		if scr.ShowDiff {
			diffKey := diffKeyFor(scr.Key)
			if !next.has(diffKey) {
				return next, []dispatch.Command{dispatch.Fetch{Key: diffKey}}
			}
		}
		return next, nil

	case StartSearch:
		next.Searching = true
		return next, nil

	case SetSearch:
		next.Search = e.Term
		next.top().Selected = 0
		return next, nil

	case EndSearch:
		next.Searching = false
		if !e.Keep {
			next.Search = ""
		}
		return next, nil

	case MergePull:
		return mutateFocusedPull(next, dispatch.Mutation{Kind: dispatch.MutateMergePull, Method: e.Method}, "merging…")

	case ClosePull:
		return mutateFocusedPull(next, dispatch.Mutation{Kind: dispatch.MutateClosePull}, "closing…")

	case CloseIssue:
		return closeSelectedIssue(next)

	case SubmitComment:
		return submitComment(next, e.Body)

	case SubmitReview:
		return mutateFocusedPull(next, dispatch.Mutation{Kind: dispatch.MutateReview, Event: e.Event, Body: e.Body}, "submitting review…")

	case OpenURL:
		return next, []dispatch.Command{dispatch.OpenExternal{URL: e.URL}}

	case CopyText:
		return next, []dispatch.Command{dispatch.CopyClipboard{Text: e.Text}}
	}
	return next, nil
}

// openSelected pushes the detail screen for the item under the cursor and
// issues its fetches under the new epoch.
func openSelected(next AppState) (AppState, []dispatch.Command) {
	top := next.Top()
	switch top.Kind {
	case ScreenHome:
		home, ok := homeData(next)
		if !ok {
			return next, nil
		}
		var owner, repo string
		var number int
		if top.Section == SectionReviewRequests {
			rr, ok := nthMatch(home.ReviewRequests, next.Search, top.Selected)
			if !ok {
				return next, nil
			}
			owner, repo, number = rr.RepoOwner, rr.RepoName, rr.Number
		} else {
			mp, ok := nthMatch(home.MyPulls, next.Search, top.Selected)
			if !ok {
				return next, nil
			}
			owner, repo, number = mp.RepoOwner, mp.RepoName, mp.Number
		}
		return pushPullDetail(next, owner, repo, number)

	case ScreenRepoList:
		repos, ok := payloadAs[forge.Paged[forge.Repository]](next, top.Key)
		if !ok {
			return next, nil
		}
		r, ok := nthMatch(repos.Items, next.Search, top.Selected)
		if !ok {
			return next, nil
		}
		key := ListKey(next.Provider, r.Owner, r.Name, TabPulls)
		next.push(Screen{Kind: ScreenRepoView, Key: key, Tab: TabPulls, Loading: !next.has(key)})
		return next, []dispatch.Command{dispatch.Fetch{Key: key}}

	case ScreenRepoView:
		switch top.Tab {
		case TabPulls:
			pulls, ok := payloadAs[forge.Paged[forge.PullSummary]](next, top.Key)
			if !ok {
				return next, nil
			}
			p, ok := nthMatch(pulls.Items, next.Search, top.Selected)
			if !ok {
				return next, nil
			}
			return pushPullDetail(next, top.Key.Owner, top.Key.Repo, p.Number)
		case TabCommits:
			commits, ok := payloadAs[forge.Paged[forge.Commit]](next, top.Key)
			if !ok {
				return next, nil
			}
			c, ok := nthMatch(commits.Items, next.Search, top.Selected)
			if !ok {
				return next, nil
			}
			key := CommitKey(next.Provider, top.Key.Owner, top.Key.Repo, c.SHA)
			next.push(Screen{Kind: ScreenCommitDetail, Key: key, Loading: !next.has(key)})
			return next, []dispatch.Command{dispatch.Fetch{Key: key}}
		}
	}
	return next, nil
}

func pushPullDetail(next AppState, owner, repo string, number int) (AppState, []dispatch.Command) {
	key := PullKey(next.Provider, owner, repo, number)
	next.push(Screen{Kind: ScreenPullDetail, Key: key, Loading: !next.has(key)})
	return next, []dispatch.Command{
		dispatch.Fetch{Key: key},
		dispatch.Fetch{Key: ChecksKey(next.Provider, owner, repo, number)},
	}
}

// switchTab cycles home sections or repo view tabs. A repo tab switch is a
// replace that changes the focused entity, so refocus bumps the epoch.
func switchTab(next AppState, forward bool) (AppState, []dispatch.Command) {
	scr := next.top()
	switch scr.Kind {
	case ScreenHome:
		if scr.Section == SectionReviewRequests {
			scr.Section = SectionMyPulls
		} else {
			scr.Section = SectionReviewRequests
		}
		scr.Selected = 0
		return next, nil
	case ScreenRepoView:
		tab := scr.Tab.Next()
		if !forward {
			tab = scr.Tab.Prev()
		}
		scr.Tab = tab
		scr.Selected = 0
		scr.Page = 0
		scr.HasMore = false
		key := ListKey(next.Provider, scr.Key.Owner, scr.Key.Repo, tab)
		scr.Loading = !next.has(key)
		next.refocus(key)
		return next, []dispatch.Command{dispatch.Fetch{Key: key}}
	}
	return next, nil
}

func moveCursor(next *AppState, delta int) {
	scr := next.top()
	if scr.Kind == ScreenPullDetail || scr.Kind == ScreenCommitDetail {
		scr.Scroll = max(0, scr.Scroll+delta)
		return
	}
	n := next.topListLen()
	if n == 0 {
		return
	}
	scr.Selected = min(max(scr.Selected+delta, 0), n-1)
}

func mutateFocusedPull(next AppState, op dispatch.Mutation, status string) (AppState, []dispatch.Command) {
	top := next.top()
	if top.Kind != ScreenPullDetail {
		return next, nil
	}
	top.Status = status
	return next, []dispatch.Command{dispatch.Mutate{Key: top.Key, Op: op}}
}

func closeSelectedIssue(next AppState) (AppState, []dispatch.Command) {
	top := next.top()
	if top.Kind != ScreenRepoView || top.Tab != TabIssues {
		return next, nil
	}
	issues, ok := payloadAs[forge.Paged[forge.Issue]](next, top.Key)
	if !ok {
		return next, nil
	}
	issue, ok := nthMatch(issues.Items, next.Search, top.Selected)
	if !ok {
		return next, nil
	}
	top.Status = "closing…"
	key := IssueKey(next.Provider, top.Key.Owner, top.Key.Repo, issue.Number)
	return next, []dispatch.Command{
		dispatch.Mutate{Key: key, Op: dispatch.Mutation{Kind: dispatch.MutateCloseIssue}},
	}
}

func submitComment(next AppState, body string) (AppState, []dispatch.Command) {
	top := next.top()
	switch {
	case top.Kind == ScreenPullDetail:
		top.Status = "posting comment…"
		return next, []dispatch.Command{
			dispatch.Mutate{Key: top.Key, Op: dispatch.Mutation{Kind: dispatch.MutateComment, Body: body}},
		}
	case top.Kind == ScreenRepoView && top.Tab == TabIssues:
		issues, ok := payloadAs[forge.Paged[forge.Issue]](next, top.Key)
		if !ok {
			return next, nil
		}
		issue, ok := nthMatch(issues.Items, next.Search, top.Selected)
		if !ok {
			return next, nil
		}
		top.Status = "posting comment…"
		key := IssueKey(next.Provider, top.Key.Owner, top.Key.Repo, issue.Number)
		return next, []dispatch.Command{
			dispatch.Mutate{Key: key, Op: dispatch.Mutation{Kind: dispatch.MutateComment, Body: body}},
		}
	}
	return next, nil
}

// refreshKeys lists what a manual refresh of a screen must refetch.
func refreshKeys(scr Screen) []forge.ResourceKey {
	switch scr.Kind {
	case ScreenPullDetail:
		keys := []forge.ResourceKey{scr.Key, checksKeyFor(scr.Key)}
		if scr.ShowDiff {
			keys = append(keys, diffKeyFor(scr.Key))
		}
		return keys
	default:
		return []forge.ResourceKey{scr.Key}
	}
}

func checksKeyFor(pull forge.ResourceKey) forge.ResourceKey {
	pull.Kind = forge.KindCheckStatus
	return pull
}

func diffKeyFor(pull forge.ResourceKey) forge.ResourceKey {
	pull.Kind = forge.KindPullDiff
	return pull
}

// Lookup helpers.

func (s AppState) has(key forge.ResourceKey) bool {
	_, ok := s.Data[key.String()]
	return ok
}

func (s AppState) topListLen() int {
	top := s.Top()
	if top.Kind == ScreenHome {
		home, ok := homeData(s)
		if !ok {
			return 0
		}
		if top.Section == SectionReviewRequests {
			return countMatches(home.ReviewRequests, s.Search)
		}
		return countMatches(home.MyPulls, s.Search)
	}
	if v, ok := s.Payload(top.Key); ok {
		if n, isList := filteredListLen(v, s.Search); isList {
			return n
		}
	}
	return 0
}

func homeData(s AppState) (forge.HomeData, bool) {
	return payloadAs[forge.HomeData](s, HomeKey(s.Provider))
}

func payloadAs[T any](s AppState, key forge.ResourceKey) (T, bool) {
	var zero T
	v, ok := s.Data[key.String()]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
