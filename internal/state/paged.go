package state

import "forgedeck/internal/forge"

// Helpers over the closed set of list payload types. The reducer needs
// item counts (cursor clamping), pagination flags, and page appends
// without caring which list it is looking at.

func listLen(v any) (int, bool) {
	switch p := v.(type) {
	case forge.Paged[forge.Repository]:
		return len(p.Items), true
	case forge.Paged[forge.PullSummary]:
		return len(p.Items), true
	case forge.Paged[forge.Issue]:
		return len(p.Items), true
	case forge.Paged[forge.Commit]:
		return len(p.Items), true
	case forge.Paged[forge.WorkflowRun]:
		return len(p.Items), true
	default:
		return 0, false
	}
}

func listHasMore(v any) (bool, bool) {
	switch p := v.(type) {
	case forge.Paged[forge.Repository]:
		return p.HasMore, true
	case forge.Paged[forge.PullSummary]:
		return p.HasMore, true
	case forge.Paged[forge.Issue]:
		return p.HasMore, true
	case forge.Paged[forge.Commit]:
		return p.HasMore, true
	case forge.Paged[forge.WorkflowRun]:
		return p.HasMore, true
	default:
		return false, false
	}
}

// appendPage merges a later page into the existing payload for a key.
// Returns the merged payload, or the page itself when nothing was loaded
// before (a refresh raced the pagination request).
func appendPage(existing, page any) any {
	switch next := page.(type) {
	case forge.Paged[forge.Repository]:
		return appendPaged(existing, next)
	case forge.Paged[forge.PullSummary]:
		return appendPaged(existing, next)
	case forge.Paged[forge.Issue]:
		return appendPaged(existing, next)
	case forge.Paged[forge.Commit]:
		return appendPaged(existing, next)
	case forge.Paged[forge.WorkflowRun]:
		return appendPaged(existing, next)
	default:
		return page
	}
}

func appendPaged[T any](existing any, next forge.Paged[T]) forge.Paged[T] {
	prev, ok := existing.(forge.Paged[T])
	if !ok {
		return next
	}
	merged := forge.Paged[T]{
		Items:   make([]T, 0, len(prev.Items)+len(next.Items)),
		HasMore: next.HasMore,
	}
	merged.Items = append(merged.Items, prev.Items...)
	merged.Items = append(merged.Items, next.Items...)
	return merged
}
