// Package state holds the application state and the pure reducer that is
// its single authority. The reducer consumes one message at a time, task
// results from the dispatcher or UI events from the input layer, and
// returns the next state plus the commands it wants executed. No I/O
// happens here; screens reference entities by ResourceKey only, never by
// pointer into the cache.
package state

import (
	"fmt"
	"strconv"

	"forgedeck/internal/forge"
)

// ScreenKind addresses one view type.
type ScreenKind int

const (
	ScreenHome ScreenKind = iota
	ScreenRepoList
	ScreenRepoView
	ScreenPullDetail
	ScreenCommitDetail
)

func (k ScreenKind) String() string {
	switch k {
	case ScreenHome:
		return "home"
	case ScreenRepoList:
		return "repos"
	case ScreenRepoView:
		return "repo"
	case ScreenPullDetail:
		return "pull"
	case ScreenCommitDetail:
		return "commit"
	default:
		return "unknown"
	}
}

// Tab selects a section of the repo view.
type Tab int

const (
	TabPulls Tab = iota
	TabIssues
	TabCommits
	TabRuns
)

func (t Tab) String() string {
	switch t {
	case TabPulls:
		return "Pull Requests"
	case TabIssues:
		return "Issues"
	case TabCommits:
		return "Commits"
	case TabRuns:
		return "CI Runs"
	default:
		return "?"
	}
}

// Next cycles forward through the repo view tabs.
func (t Tab) Next() Tab { return (t + 1) % 4 }

// Prev cycles backward through the repo view tabs.
func (t Tab) Prev() Tab { return (t + 3) % 4 }

func (t Tab) kind() forge.Kind {
	switch t {
	case TabIssues:
		return forge.KindIssueList
	case TabCommits:
		return forge.KindCommitList
	case TabRuns:
		return forge.KindRunList
	default:
		return forge.KindPullList
	}
}

// Section selects a home screen panel.
type Section int

const (
	SectionReviewRequests Section = iota
	SectionMyPulls
)

// Screen is an addressable view descriptor on the navigation stack. It
// names the entity it displays by key; the record itself lives in the
// reducer's data table, looked up at render time.
type Screen struct {
	Kind ScreenKind
	// Key is the resource the screen displays: the home aggregate, a
	// repository list, the active tab's list, or a detail record.
	Key forge.ResourceKey
	// Tab and Section are per-kind focus within the screen.
	Tab     Tab
	Section Section
	// Selected is the cursor position in list screens.
	Selected int
	// Scroll is the viewport offset in detail screens.
	Scroll int
	// Page and HasMore track pagination of list screens; LoadingMore
	// marks an outstanding page fetch.
	Page        int
	HasMore     bool
	LoadingMore bool
	// Loading marks an outstanding fetch; Status is where task errors and
	// mutation confirmations are folded for display.
	Loading bool
	Status  string
	// ShowDiff toggles the diff section of the pull detail view.
	ShowDiff bool
}

// Key constructors. Everything navigable is addressed through these so the
// reducer, dispatcher and cache all agree on identity.

// HomeKey addresses the provider's home aggregate.
func HomeKey(provider string) forge.ResourceKey {
	return forge.ResourceKey{Provider: provider, Kind: forge.KindHome}
}

// RepoListKey addresses the provider's repository list.
func RepoListKey(provider string) forge.ResourceKey {
	return forge.ResourceKey{Provider: provider, Kind: forge.KindRepoList}
}

// ListKey addresses one repo-scoped list by tab.
func ListKey(provider, owner, repo string, tab Tab) forge.ResourceKey {
	return forge.ResourceKey{Provider: provider, Owner: owner, Repo: repo, Kind: tab.kind()}
}

// PullKey addresses a pull request detail record.
func PullKey(provider, owner, repo string, number int) forge.ResourceKey {
	return forge.ResourceKey{
		Provider: provider, Owner: owner, Repo: repo,
		Kind: forge.KindPullDetail, ID: strconv.Itoa(number),
	}
}

// PullDiffKey addresses a pull request diff.
func PullDiffKey(provider, owner, repo string, number int) forge.ResourceKey {
	return forge.ResourceKey{
		Provider: provider, Owner: owner, Repo: repo,
		Kind: forge.KindPullDiff, ID: strconv.Itoa(number),
	}
}

// ChecksKey addresses a pull request's rolled-up CI status.
func ChecksKey(provider, owner, repo string, number int) forge.ResourceKey {
	return forge.ResourceKey{
		Provider: provider, Owner: owner, Repo: repo,
		Kind: forge.KindCheckStatus, ID: strconv.Itoa(number),
	}
}

// IssueKey addresses a single issue for mutation targeting.
func IssueKey(provider, owner, repo string, number int) forge.ResourceKey {
	return forge.ResourceKey{
		Provider: provider, Owner: owner, Repo: repo,
		Kind: forge.KindIssue, ID: strconv.Itoa(number),
	}
}

// CommitKey addresses a commit detail record.
func CommitKey(provider, owner, repo, sha string) forge.ResourceKey {
	return forge.ResourceKey{
		Provider: provider, Owner: owner, Repo: repo,
		Kind: forge.KindCommit, ID: sha,
	}
}

// Title renders the breadcrumb label for a screen.
func (s Screen) Title() string {
	switch s.Kind {
	case ScreenHome:
		return "Home"
	case ScreenRepoList:
		return "Repositories"
	case ScreenRepoView:
		return fmt.Sprintf("%s/%s", s.Key.Owner, s.Key.Repo)
	case ScreenPullDetail:
		return fmt.Sprintf("%s/%s #%s", s.Key.Owner, s.Key.Repo, s.Key.ID)
	case ScreenCommitDetail:
		sha := s.Key.ID
		if len(sha) > 8 {
			sha = sha[:8]
		}
		return fmt.Sprintf("%s/%s @%s", s.Key.Owner, s.Key.Repo, sha)
	default:
		return ""
	}
}
