package state

import (
	"strconv"
	"strings"

	"forgedeck/internal/forge"
)

// Match reports whether a list record matches a search term. The term is a
// case-insensitive substring match over the fields a user would scan for;
// an empty term matches everything. The view and the reducer share this
// predicate so the rendered list and the cursor always agree on which
// items are visible.
func Match(v any, term string) bool {
	if term == "" {
		return true
	}
	switch r := v.(type) {
	case forge.Repository:
		return anyContains(term, r.Owner+"/"+r.Name, r.Description)
	case forge.PullSummary:
		return anyContains(term, strconv.Itoa(r.Number), r.Title, r.Author)
	case forge.Issue:
		if anyContains(term, strconv.Itoa(r.Number), r.Title, r.Author) {
			return true
		}
		return anyContains(term, r.Labels...)
	case forge.Commit:
		return anyContains(term, r.SHA, r.Message, r.Author)
	case forge.WorkflowRun:
		return anyContains(term, r.Name, r.Branch, r.Event)
	case forge.ReviewRequest:
		return anyContains(term, r.RepoOwner+"/"+r.RepoName, r.Title, r.Author)
	case forge.MyPull:
		return anyContains(term, r.RepoOwner+"/"+r.RepoName, r.Title)
	default:
		return true
	}
}

func anyContains(term string, fields ...string) bool {
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Filtered returns the items matching term, preserving order.
func Filtered[T any](items []T, term string) []T {
	if term == "" {
		return items
	}
	var out []T
	for _, it := range items {
		if Match(it, term) {
			out = append(out, it)
		}
	}
	return out
}

// nthMatch resolves a cursor position over the filtered view of items back
// to the underlying item.
func nthMatch[T any](items []T, term string, n int) (T, bool) {
	var zero T
	if n < 0 {
		return zero, false
	}
	for _, it := range items {
		if !Match(it, term) {
			continue
		}
		if n == 0 {
			return it, true
		}
		n--
	}
	return zero, false
}

func countMatches[T any](items []T, term string) int {
	if term == "" {
		return len(items)
	}
	n := 0
	for _, it := range items {
		if Match(it, term) {
			n++
		}
	}
	return n
}

// filteredListLen is listLen restricted to items matching term.
func filteredListLen(v any, term string) (int, bool) {
	switch p := v.(type) {
	case forge.Paged[forge.Repository]:
		return countMatches(p.Items, term), true
	case forge.Paged[forge.PullSummary]:
		return countMatches(p.Items, term), true
	case forge.Paged[forge.Issue]:
		return countMatches(p.Items, term), true
	case forge.Paged[forge.Commit]:
		return countMatches(p.Items, term), true
	case forge.Paged[forge.WorkflowRun]:
		return countMatches(p.Items, term), true
	default:
		return 0, false
	}
}
