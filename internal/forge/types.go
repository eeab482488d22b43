// Package forge defines the provider contract: the operation set every
// hosting-service backend must implement, the normalized domain records
// those operations return, and the registry that maps provider identifiers
// to concrete backends. The rest of the application only ever sees these
// types; nothing backend-specific crosses this boundary.
package forge

import "time"

// PullState classifies a pull request.
type PullState string

const (
	PullOpen   PullState = "open"
	PullClosed PullState = "closed"
	PullMerged PullState = "merged"
)

// IssueState classifies an issue.
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
)

// ChecksStatus is the rolled-up CI status for a pull request head.
type ChecksStatus string

const (
	ChecksPending ChecksStatus = "pending"
	ChecksSuccess ChecksStatus = "success"
	ChecksFailure ChecksStatus = "failure"
	ChecksNone    ChecksStatus = "none"
)

// MergeMethod selects how a pull request is merged.
type MergeMethod string

const (
	MergeDefault MergeMethod = "merge"
	MergeSquash  MergeMethod = "squash"
	MergeRebase  MergeMethod = "rebase"
)

// ReviewEvent is the verdict attached to a submitted review.
type ReviewEvent string

const (
	ReviewApprove        ReviewEvent = "approve"
	ReviewRequestChanges ReviewEvent = "request_changes"
	ReviewComment        ReviewEvent = "comment"
)

// Repository is a normalized repository record.
type Repository struct {
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Stars       int       `json:"stars"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PullSummary is the list-view shape of a pull request.
type PullSummary struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     PullState `json:"state"`
	Author    string    `json:"author"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PullStats carries the size counters shown on a pull request detail view.
type PullStats struct {
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	ChangedFiles int `json:"changed_files"`
	Commits      int `json:"commits"`
	Comments     int `json:"comments"`
}

// PullRequest is the full detail record for a single pull request.
type PullRequest struct {
	Number     int        `json:"number"`
	Title      string     `json:"title"`
	Body       string     `json:"body,omitempty"`
	State      PullState  `json:"state"`
	Author     string     `json:"author"`
	HeadBranch string     `json:"head_branch"`
	BaseBranch string     `json:"base_branch"`
	Stats      PullStats  `json:"stats"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	MergedAt   *time.Time `json:"merged_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// Issue is a normalized issue record.
type Issue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     IssueState `json:"state"`
	Author    string     `json:"author"`
	Labels    []string   `json:"labels,omitempty"`
	Comments  int        `json:"comments"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Commit is the list-view shape of a commit.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// CommitStats aggregates line counts for a commit.
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// CommitFile is one changed file inside a commit detail record.
type CommitFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// CommitDetail is the full record for a single commit.
type CommitDetail struct {
	SHA     string       `json:"sha"`
	Message string       `json:"message"`
	Author  string       `json:"author"`
	Date    time.Time    `json:"date"`
	Stats   CommitStats  `json:"stats"`
	Files   []CommitFile `json:"files,omitempty"`
}

// WorkflowRun is a normalized CI workflow run record.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion,omitempty"`
	Branch     string    `json:"branch"`
	Event      string    `json:"event"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewRequest is a pull request where the current user was asked to review.
type ReviewRequest struct {
	RepoOwner string    `json:"repo_owner"`
	RepoName  string    `json:"repo_name"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MyPull is one of the current user's open pull requests with CI status.
type MyPull struct {
	RepoOwner string       `json:"repo_owner"`
	RepoName  string       `json:"repo_name"`
	Number    int          `json:"number"`
	Title     string       `json:"title"`
	State     PullState    `json:"state"`
	Checks    ChecksStatus `json:"checks"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// HomeData groups the two home-screen sections into one fetchable value.
type HomeData struct {
	ReviewRequests []ReviewRequest `json:"review_requests"`
	MyPulls        []MyPull        `json:"my_pulls"`
}

// Paged wraps one page of a list result. HasMore reports whether the
// backend indicated another page is available.
type Paged[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}
