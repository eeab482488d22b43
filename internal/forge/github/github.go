// Package github adapts the GitHub REST API to the forge contract. All
// payload shapes and error codes are translated here; nothing
// GitHub-specific leaves this package.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"forgedeck/internal/forge"
)

const pageSize = 30

// GitHub implements forge.Forge against api.github.com (or a GitHub
// Enterprise host).
type GitHub struct {
	name   string
	host   string
	client *client
}

// New builds an adapter for the given host ("github.com" for the public
// service) authenticating with token.
func New(name, host, token string) *GitHub {
	api := "https://api." + host
	if host != "github.com" {
		api = "https://" + host + "/api/v3"
	}
	return &GitHub{
		name: name,
		host: host,
		client: &client{
			base:  api,
			token: token,
			http:  &http.Client{Timeout: 30 * time.Second},
		},
	}
}

func (g *GitHub) Name() string { return g.name }

// WebURL builds the browser URL for a resource.
func (g *GitHub) WebURL(owner, repo string, kind forge.Kind, id string) string {
	base := fmt.Sprintf("https://%s/%s/%s", g.host, owner, repo)
	switch kind {
	case forge.KindPullDetail, forge.KindPullDiff:
		return base + "/pull/" + id
	case forge.KindIssue, forge.KindIssueList:
		if id == "" {
			return base + "/issues"
		}
		return base + "/issues/" + id
	case forge.KindCommit, forge.KindCommitList:
		if id == "" {
			return base + "/commits"
		}
		return base + "/commit/" + id
	case forge.KindRunList:
		return base + "/actions"
	case forge.KindPullList:
		return base + "/pulls"
	default:
		return base
	}
}

func (g *GitHub) CurrentUser(ctx context.Context) (string, error) {
	var user struct {
		Login string `json:"login"`
	}
	if err := g.client.get(ctx, "/user", nil, &user); err != nil {
		return "", err
	}
	return user.Login, nil
}

type ghRepo struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Stars       int       `json:"stargazers_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (g *GitHub) ListRepos(ctx context.Context, page int) (forge.Paged[forge.Repository], error) {
	var raw []ghRepo
	err := g.client.get(ctx, "/user/repos", params{
		"sort": "updated", "per_page": pageSize, "page": page,
	}, &raw)
	if err != nil {
		return forge.Paged[forge.Repository]{}, err
	}
	out := forge.Paged[forge.Repository]{HasMore: len(raw) == pageSize}
	for _, r := range raw {
		out.Items = append(out.Items, forge.Repository{
			Owner:       r.Owner.Login,
			Name:        r.Name,
			Description: r.Description,
			URL:         r.HTMLURL,
			Stars:       r.Stars,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return out, nil
}

type ghPull struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Additions      int        `json:"additions"`
	Deletions      int        `json:"deletions"`
	ChangedFiles   int        `json:"changed_files"`
	Commits        int        `json:"commits"`
	Comments       int        `json:"comments"`
	ReviewComments int        `json:"review_comments"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	MergedAt       *time.Time `json:"merged_at"`
	ClosedAt       *time.Time `json:"closed_at"`
}

func (p ghPull) state() forge.PullState {
	switch {
	case p.MergedAt != nil:
		return forge.PullMerged
	case p.State == "closed":
		return forge.PullClosed
	default:
		return forge.PullOpen
	}
}

func (g *GitHub) ListPulls(ctx context.Context, owner, repo string, page int) (forge.Paged[forge.PullSummary], error) {
	var raw []ghPull
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), params{
		"state": "all", "per_page": pageSize, "page": page,
	}, &raw)
	if err != nil {
		return forge.Paged[forge.PullSummary]{}, err
	}
	out := forge.Paged[forge.PullSummary]{HasMore: len(raw) == pageSize}
	for _, p := range raw {
		out.Items = append(out.Items, forge.PullSummary{
			Number:    p.Number,
			Title:     p.Title,
			State:     p.state(),
			Author:    p.User.Login,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

func (g *GitHub) GetPull(ctx context.Context, owner, repo string, number int) (forge.PullRequest, error) {
	var p ghPull
	if err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), nil, &p); err != nil {
		return forge.PullRequest{}, err
	}
	return forge.PullRequest{
		Number:     p.Number,
		Title:      p.Title,
		Body:       p.Body,
		State:      p.state(),
		Author:     p.User.Login,
		HeadBranch: p.Head.Ref,
		BaseBranch: p.Base.Ref,
		Stats: forge.PullStats{
			Additions:    p.Additions,
			Deletions:    p.Deletions,
			ChangedFiles: p.ChangedFiles,
			Commits:      p.Commits,
			Comments:     p.Comments + p.ReviewComments,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		MergedAt:  p.MergedAt,
		ClosedAt:  p.ClosedAt,
	}, nil
}

func (g *GitHub) PullDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	return g.client.getRaw(ctx,
		fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number),
		"application/vnd.github.diff")
}

type ghIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Comments    int       `json:"comments"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

func (g *GitHub) ListIssues(ctx context.Context, owner, repo string, page int) (forge.Paged[forge.Issue], error) {
	var raw []ghIssue
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/issues", owner, repo), params{
		"state": "open", "per_page": pageSize, "page": page,
	}, &raw)
	if err != nil {
		return forge.Paged[forge.Issue]{}, err
	}
	out := forge.Paged[forge.Issue]{HasMore: len(raw) == pageSize}
	for _, is := range raw {
		// The issues endpoint interleaves pull requests; drop them.
		if is.PullRequest != nil {
			continue
		}
		labels := make([]string, 0, len(is.Labels))
		for _, l := range is.Labels {
			labels = append(labels, l.Name)
		}
		state := forge.IssueOpen
		if is.State == "closed" {
			state = forge.IssueClosed
		}
		out.Items = append(out.Items, forge.Issue{
			Number:    is.Number,
			Title:     is.Title,
			State:     state,
			Author:    is.User.Login,
			Labels:    labels,
			Comments:  is.Comments,
			CreatedAt: is.CreatedAt,
			UpdatedAt: is.UpdatedAt,
		})
	}
	return out, nil
}

type ghCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Stats struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
		Total     int `json:"total"`
	} `json:"stats"`
	Files []struct {
		Filename  string `json:"filename"`
		Status    string `json:"status"`
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
		Patch     string `json:"patch"`
	} `json:"files"`
}

func (g *GitHub) ListCommits(ctx context.Context, owner, repo string, page int) (forge.Paged[forge.Commit], error) {
	var raw []ghCommit
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/commits", owner, repo), params{
		"per_page": pageSize, "page": page,
	}, &raw)
	if err != nil {
		return forge.Paged[forge.Commit]{}, err
	}
	out := forge.Paged[forge.Commit]{HasMore: len(raw) == pageSize}
	for _, c := range raw {
		out.Items = append(out.Items, forge.Commit{
			SHA:     c.SHA,
			Message: c.Commit.Message,
			Author:  c.Commit.Author.Name,
			Date:    c.Commit.Author.Date,
		})
	}
	return out, nil
}

func (g *GitHub) GetCommit(ctx context.Context, owner, repo, sha string) (forge.CommitDetail, error) {
	var c ghCommit
	if err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/commits/%s", owner, repo, sha), nil, &c); err != nil {
		return forge.CommitDetail{}, err
	}
	detail := forge.CommitDetail{
		SHA:     c.SHA,
		Message: c.Commit.Message,
		Author:  c.Commit.Author.Name,
		Date:    c.Commit.Author.Date,
		Stats: forge.CommitStats{
			Additions: c.Stats.Additions,
			Deletions: c.Stats.Deletions,
			Total:     c.Stats.Total,
		},
	}
	for _, f := range c.Files {
		detail.Files = append(detail.Files, forge.CommitFile{
			Filename:  f.Filename,
			Status:    f.Status,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Patch:     f.Patch,
		})
	}
	return detail, nil
}

func (g *GitHub) MergePull(ctx context.Context, owner, repo string, number int, method forge.MergeMethod) error {
	body := map[string]string{"merge_method": string(method)}
	return g.client.do(ctx, http.MethodPut,
		fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", owner, repo, number), body, nil)
}

func (g *GitHub) ClosePull(ctx context.Context, owner, repo string, number int) error {
	return g.client.do(ctx, http.MethodPatch,
		fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number),
		map[string]string{"state": "closed"}, nil)
}

func (g *GitHub) CloseIssue(ctx context.Context, owner, repo string, number int) error {
	return g.client.do(ctx, http.MethodPatch,
		fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number),
		map[string]string{"state": "closed"}, nil)
}

func (g *GitHub) Comment(ctx context.Context, owner, repo string, number int, body string) error {
	return g.client.do(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number),
		map[string]string{"body": body}, nil)
}

func (g *GitHub) SubmitReview(ctx context.Context, owner, repo string, number int, event forge.ReviewEvent, body string) error {
	apiEvent := map[forge.ReviewEvent]string{
		forge.ReviewApprove:        "APPROVE",
		forge.ReviewRequestChanges: "REQUEST_CHANGES",
		forge.ReviewComment:        "COMMENT",
	}[event]
	if apiEvent == "" {
		return forge.Errorf(forge.ErrNetwork, "unknown review event %q", event)
	}
	return g.client.do(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, number),
		map[string]string{"event": apiEvent, "body": body}, nil)
}

type ghSearchResult struct {
	Items []struct {
		Number        int       `json:"number"`
		Title         string    `json:"title"`
		State         string    `json:"state"`
		UpdatedAt     time.Time `json:"updated_at"`
		RepositoryURL string    `json:"repository_url"`
		User          struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"items"`
}

func (g *GitHub) ReviewRequests(ctx context.Context, user string) ([]forge.ReviewRequest, error) {
	var res ghSearchResult
	err := g.client.get(ctx, "/search/issues", params{
		"q": fmt.Sprintf("type:pr state:open review-requested:%s", user),
	}, &res)
	if err != nil {
		return nil, err
	}
	out := make([]forge.ReviewRequest, 0, len(res.Items))
	for _, it := range res.Items {
		owner, repo := splitRepoURL(it.RepositoryURL)
		out = append(out, forge.ReviewRequest{
			RepoOwner: owner,
			RepoName:  repo,
			Number:    it.Number,
			Title:     it.Title,
			Author:    it.User.Login,
			UpdatedAt: it.UpdatedAt,
		})
	}
	return out, nil
}

func (g *GitHub) MyPulls(ctx context.Context, user string) ([]forge.MyPull, error) {
	var res ghSearchResult
	err := g.client.get(ctx, "/search/issues", params{
		"q": fmt.Sprintf("type:pr state:open author:%s", user),
	}, &res)
	if err != nil {
		return nil, err
	}
	out := make([]forge.MyPull, len(res.Items))
	g2, gctx := errgroup.WithContext(ctx)
	g2.SetLimit(4)
	for i, it := range res.Items {
		owner, repo := splitRepoURL(it.RepositoryURL)
		out[i] = forge.MyPull{
			RepoOwner: owner,
			RepoName:  repo,
			Number:    it.Number,
			Title:     it.Title,
			State:     forge.PullOpen,
			Checks:    forge.ChecksNone,
			UpdatedAt: it.UpdatedAt,
		}
		g2.Go(func() error {
			// CI status is decoration on this view; a failure here must
			// not sink the whole home screen.
			if checks, err := g.CheckStatus(gctx, owner, repo, it.Number); err == nil {
				out[i].Checks = checks
			}
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GitHub) ListRuns(ctx context.Context, owner, repo string, page int) (forge.Paged[forge.WorkflowRun], error) {
	var res struct {
		Runs []struct {
			ID         int64     `json:"id"`
			Name       string    `json:"name"`
			Status     string    `json:"status"`
			Conclusion string    `json:"conclusion"`
			HeadBranch string    `json:"head_branch"`
			Event      string    `json:"event"`
			CreatedAt  time.Time `json:"created_at"`
		} `json:"workflow_runs"`
	}
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/actions/runs", owner, repo), params{
		"per_page": pageSize, "page": page,
	}, &res)
	if err != nil {
		return forge.Paged[forge.WorkflowRun]{}, err
	}
	out := forge.Paged[forge.WorkflowRun]{HasMore: len(res.Runs) == pageSize}
	for _, r := range res.Runs {
		out.Items = append(out.Items, forge.WorkflowRun{
			ID:         r.ID,
			Name:       r.Name,
			Status:     r.Status,
			Conclusion: r.Conclusion,
			Branch:     r.HeadBranch,
			Event:      r.Event,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}

func (g *GitHub) CheckStatus(ctx context.Context, owner, repo string, number int) (forge.ChecksStatus, error) {
	var pull struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	if err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), nil, &pull); err != nil {
		return forge.ChecksNone, err
	}
	var runs struct {
		CheckRuns []struct {
			Status     string `json:"status"`
			Conclusion string `json:"conclusion"`
		} `json:"check_runs"`
	}
	err := g.client.get(ctx,
		fmt.Sprintf("/repos/%s/%s/commits/%s/check-runs", owner, repo, pull.Head.SHA), nil, &runs)
	if err != nil {
		return forge.ChecksNone, err
	}
	if len(runs.CheckRuns) == 0 {
		return forge.ChecksNone, nil
	}
	status := forge.ChecksSuccess
	for _, r := range runs.CheckRuns {
		switch {
		case r.Status != "completed":
			status = forge.ChecksPending
		case r.Conclusion == "failure" || r.Conclusion == "timed_out" || r.Conclusion == "cancelled":
			return forge.ChecksFailure, nil
		}
	}
	return status, nil
}

// splitRepoURL extracts owner/name from a search API repository_url like
// https://api.github.com/repos/owner/name.
func splitRepoURL(raw string) (owner, name string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	parts := splitPath(u.Path)
	if len(parts) < 2 {
		return "", ""
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}
