package forge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind names a fetchable resource class. It drives cache TTL lookup and
// payload decoding, so every cacheable value must have exactly one Kind.
type Kind string

const (
	KindRepoList    Kind = "repos"
	KindHome        Kind = "home"
	KindPullList    Kind = "pulls"
	KindPullDetail  Kind = "pull"
	KindPullDiff    Kind = "diff"
	KindIssueList   Kind = "issues"
	// KindIssue identifies a single issue for mutation targeting; issues
	// have no cached detail view, so the kind never appears in the cache.
	KindIssue       Kind = "issue"
	KindCommitList  Kind = "commits"
	KindCommit      Kind = "commit"
	KindRunList     Kind = "runs"
	KindCheckStatus Kind = "checks"
)

// ResourceKey is the canonical, backend-agnostic identity of a remote
// object. Two keys are equal iff they denote the same remote object,
// regardless of which adapter produced them, so the struct must stay a
// comparable value type.
type ResourceKey struct {
	Provider string `json:"provider"`
	Owner    string `json:"owner,omitempty"`
	Repo     string `json:"repo,omitempty"`
	Kind     Kind   `json:"kind"`
	// ID is the resource number for PRs/issues, the SHA for commits, and
	// empty for repo-scoped lists.
	ID string `json:"id,omitempty"`
}

// String renders the canonical form used as the cache key, dedup key and
// disk primary key. Path segments are sanitized so the result is stable
// even for hostile owner/repo names.
func (k ResourceKey) String() string {
	seg := func(s string) string { return strings.ReplaceAll(s, "/", "_") }
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		seg(k.Provider), seg(k.Owner), seg(k.Repo), k.Kind, seg(k.ID))
}

// IsZero reports whether the key denotes nothing.
func (k ResourceKey) IsZero() bool { return k == ResourceKey{} }

// RepoKeys builds the keys for every resource kind scoped to one repository.
// Used for targeted invalidation after repo-level mutations.
func RepoKeys(provider, owner, repo string) []ResourceKey {
	kinds := []Kind{KindPullList, KindIssueList, KindCommitList, KindRunList}
	keys := make([]ResourceKey, 0, len(kinds))
	for _, kind := range kinds {
		keys = append(keys, ResourceKey{Provider: provider, Owner: owner, Repo: repo, Kind: kind})
	}
	return keys
}

// DecodePayload unmarshals a serialized cache payload into the concrete
// normalized record for the key's kind. Payloads travel by value so the
// decoded result compares equal to what the adapter originally returned.
// Unknown kinds fail so cache rows written by a newer build degrade to a
// miss instead of breaking the reader.
func DecodePayload(kind Kind, data []byte) (any, error) {
	switch kind {
	case KindRepoList:
		return decodeAs[Paged[Repository]](data)
	case KindHome:
		return decodeAs[HomeData](data)
	case KindPullList:
		return decodeAs[Paged[PullSummary]](data)
	case KindPullDetail:
		return decodeAs[PullRequest](data)
	case KindPullDiff:
		return decodeAs[string](data)
	case KindIssueList:
		return decodeAs[Paged[Issue]](data)
	case KindCommitList:
		return decodeAs[Paged[Commit]](data)
	case KindCommit:
		return decodeAs[CommitDetail](data)
	case KindRunList:
		return decodeAs[Paged[WorkflowRun]](data)
	case KindCheckStatus:
		return decodeAs[ChecksStatus](data)
	default:
		return nil, fmt.Errorf("forge: unknown resource kind %q", kind)
	}
}

func decodeAs[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
