// Package dispatch executes the commands the reducer emits and reports
// their outcomes as messages. It is the only place where network and disk
// I/O happen; the reducer stays pure and single-threaded while tasks run
// concurrently here. The epoch controller decides which task results are
// still worth delivering.
package dispatch

import "forgedeck/internal/forge"

// Command is a request for a side effect. Commands are immutable values
// produced only by the reducer; the dispatcher turns each one into exactly
// one eventual Message.
type Command interface{ isCommand() }

// Fetch asks for the current value of a resource. Served from cache when
// possible, refreshed in the background when stale. Force drops the cached
// entry first, backing the user's manual refresh.
type Fetch struct {
	Key   forge.ResourceKey
	Force bool
}

// FetchPage asks for one additional page of a list resource. Pages beyond
// the first are append-only view data and bypass the cache entirely.
type FetchPage struct {
	Key  forge.ResourceKey
	Page int
}

// MutationKind enumerates the write operations a user can trigger.
type MutationKind int

const (
	MutateMergePull MutationKind = iota
	MutateClosePull
	MutateCloseIssue
	MutateComment
	MutateReview
)

func (k MutationKind) String() string {
	switch k {
	case MutateMergePull:
		return "merge"
	case MutateClosePull:
		return "close pull"
	case MutateCloseIssue:
		return "close issue"
	case MutateComment:
		return "comment"
	case MutateReview:
		return "review"
	default:
		return "mutation"
	}
}

// Mutation carries the parameters of a single write operation.
type Mutation struct {
	Kind   MutationKind
	Method forge.MergeMethod // merge only
	Event  forge.ReviewEvent // review only
	Body   string            // comment and review
}

// Mutate applies a write operation to the resource identified by Key.
// Mutations always go to the provider; on success the affected cache keys
// are invalidated before the result is reported.
type Mutate struct {
	Key forge.ResourceKey
	Op  Mutation
}

// OpenExternal opens a URL in the system browser. Fire-and-forget.
type OpenExternal struct {
	URL string
}

// CopyClipboard places text on the system clipboard. Fire-and-forget.
type CopyClipboard struct {
	Text string
}

func (Fetch) isCommand()         {}
func (FetchPage) isCommand()     {}
func (Mutate) isCommand()        {}
func (OpenExternal) isCommand()  {}
func (CopyClipboard) isCommand() {}
