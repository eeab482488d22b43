package forge

import "context"

// Forge is the capability set every hosting-service backend implements.
// Operations return normalized records or fail with *Error; the core never
// branches on which backend is behind the interface. Backends that lack an
// optional capability embed Unsupported to inherit its defaults.
type Forge interface {
	// Name returns the provider identifier this backend was registered
	// under (the Provider field of every ResourceKey it serves).
	Name() string
	// WebURL builds the browser URL for a resource, used by the
	// open-external and copy-to-clipboard commands.
	WebURL(owner, repo string, kind Kind, id string) string

	CurrentUser(ctx context.Context) (string, error)
	ListRepos(ctx context.Context, page int) (Paged[Repository], error)
	ListPulls(ctx context.Context, owner, repo string, page int) (Paged[PullSummary], error)
	GetPull(ctx context.Context, owner, repo string, number int) (PullRequest, error)
	PullDiff(ctx context.Context, owner, repo string, number int) (string, error)
	ListIssues(ctx context.Context, owner, repo string, page int) (Paged[Issue], error)
	ListCommits(ctx context.Context, owner, repo string, page int) (Paged[Commit], error)
	GetCommit(ctx context.Context, owner, repo, sha string) (CommitDetail, error)

	MergePull(ctx context.Context, owner, repo string, number int, method MergeMethod) error
	ClosePull(ctx context.Context, owner, repo string, number int) error
	CloseIssue(ctx context.Context, owner, repo string, number int) error
	Comment(ctx context.Context, owner, repo string, number int, body string) error
	SubmitReview(ctx context.Context, owner, repo string, number int, event ReviewEvent, body string) error

	// Optional capabilities. Backends without them return empty results
	// (or an explicit unsupported error for SubmitReview) via Unsupported.
	ReviewRequests(ctx context.Context, user string) ([]ReviewRequest, error)
	MyPulls(ctx context.Context, user string) ([]MyPull, error)
	ListRuns(ctx context.Context, owner, repo string, page int) (Paged[WorkflowRun], error)
	CheckStatus(ctx context.Context, owner, repo string, number int) (ChecksStatus, error)
}

// Unsupported provides no-op defaults for the optional capability subset.
// Adapters embed it and override what their backend actually offers.
type Unsupported struct{}

func (Unsupported) ReviewRequests(context.Context, string) ([]ReviewRequest, error) {
	return nil, nil
}

func (Unsupported) MyPulls(context.Context, string) ([]MyPull, error) {
	return nil, nil
}

func (Unsupported) ListRuns(context.Context, string, string, int) (Paged[WorkflowRun], error) {
	return Paged[WorkflowRun]{}, nil
}

func (Unsupported) CheckStatus(context.Context, string, string, int) (ChecksStatus, error) {
	return ChecksNone, nil
}
