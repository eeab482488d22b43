// Package gitea adapts the Gitea REST API (/api/v1) to the forge
// contract. Home aggregation and workflow runs are not offered here, so
// the adapter embeds forge.Unsupported for those.
package gitea

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"forgedeck/internal/forge"
)

const pageSize = 30

type Gitea struct {
	forge.Unsupported

	name   string
	host   string
	client *client
}

func New(name, host, token string) *Gitea {
	return &Gitea{
		name: name,
		host: host,
		client: &client{
			base:  "https://" + host + "/api/v1",
			token: token,
			http:  &http.Client{Timeout: 30 * time.Second},
		},
	}
}

func (g *Gitea) Name() string { return g.name }

func (g *Gitea) WebURL(owner, repo string, kind forge.Kind, id string) string {
	base := fmt.Sprintf("https://%s/%s/%s", g.host, owner, repo)
	switch kind {
	case forge.KindPullDetail, forge.KindPullDiff:
		return base + "/pulls/" + id
	case forge.KindPullList:
		return base + "/pulls"
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
	default:
		return base
	}
}

func (g *Gitea) CurrentUser(ctx context.Context) (string, error) {
	var user struct {
		Login string `json:"login"`
	}
	if err := g.client.get(ctx, "/user", nil, &user); err != nil {
		return "", err
	}
	return user.Login, nil
}

func (g *Gitea) ListRepos(ctx context.Context, page int) (forge.Paged[forge.Repository], error) {
	var raw []struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
		Description string    `json:"description"`
		HTMLURL     string    `json:"html_url"`
		Stars       int       `json:"stars_count"`
		UpdatedAt   time.Time `json:"updated_at"`
	}
	err := g.client.get(ctx, "/user/repos", params{"page": page, "limit": pageSize}, &raw)
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

type giteaPull struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Merged bool   `json:"merged"`
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
	Additions    int        `json:"additions"`
	Deletions    int        `json:"deletions"`
	ChangedFiles int        `json:"changed_files"`
	Comments     int        `json:"comments"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MergedAt     *time.Time `json:"merged_at"`
	ClosedAt     *time.Time `json:"closed_at"`
}

func (p giteaPull) state() forge.PullState {
	switch {
	case p.Merged:
		return forge.PullMerged
	case p.State == "closed":
		return forge.PullClosed
	default:
		return forge.PullOpen
	}
}

func (g *Gitea) ListPulls(ctx context.Context, owner, repo string, page int) (forge.Paged[forge.PullSummary], error) {
	var raw []giteaPull
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls", owner, repo), params{
		"state": "all", "page": page, "limit": pageSize,
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

func (g *Gitea) GetPull(ctx context.Context, owner, repo string, number int) (forge.PullRequest, error) {
	var p giteaPull
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
			Comments:     p.Comments,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		MergedAt:  p.MergedAt,
		ClosedAt:  p.ClosedAt,
	}, nil
}

func (g *Gitea) PullDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	return g.client.getRaw(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d.diff", owner, repo, number))
}

func (g *Gitea) ListIssues(ctx context.Context, owner, repo string, page int) (forge.Paged[forge.Issue], error) {
	var raw []struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		Comments  int       `json:"comments"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/issues", owner, repo), params{
		"state": "open", "type": "issues", "page": page, "limit": pageSize,
	}, &raw)
	if err != nil {
		return forge.Paged[forge.Issue]{}, err
	}
	out := forge.Paged[forge.Issue]{HasMore: len(raw) == pageSize}
	for _, is := range raw {
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

type giteaCommit struct {
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
		Filename string `json:"filename"`
		Status   string `json:"status"`
	} `json:"files"`
}

func (g *Gitea) ListCommits(ctx context.Context, owner, repo string, page int) (forge.Paged[forge.Commit], error) {
	var raw []giteaCommit
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/commits", owner, repo), params{
		"page": page, "limit": pageSize, "stat": false,
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

func (g *Gitea) GetCommit(ctx context.Context, owner, repo, sha string) (forge.CommitDetail, error) {
	var c giteaCommit
	err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/git/commits/%s", owner, repo, sha), nil, &c)
	if err != nil {
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
			Filename: f.Filename,
			Status:   f.Status,
		})
	}
	return detail, nil
}

func (g *Gitea) MergePull(ctx context.Context, owner, repo string, number int, method forge.MergeMethod) error {
	return g.client.do(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", owner, repo, number),
		map[string]string{"Do": string(method)}, nil)
}

func (g *Gitea) ClosePull(ctx context.Context, owner, repo string, number int) error {
	return g.client.do(ctx, http.MethodPatch,
		fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number),
		map[string]string{"state": "closed"}, nil)
}

func (g *Gitea) CloseIssue(ctx context.Context, owner, repo string, number int) error {
	return g.client.do(ctx, http.MethodPatch,
		fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number),
		map[string]string{"state": "closed"}, nil)
}

func (g *Gitea) Comment(ctx context.Context, owner, repo string, number int, body string) error {
	return g.client.do(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number),
		map[string]string{"body": body}, nil)
}

func (g *Gitea) SubmitReview(ctx context.Context, owner, repo string, number int, event forge.ReviewEvent, body string) error {
	apiEvent := map[forge.ReviewEvent]string{
		forge.ReviewApprove:        "APPROVED",
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

func (g *Gitea) CheckStatus(ctx context.Context, owner, repo string, number int) (forge.ChecksStatus, error) {
	var pull struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	if err := g.client.get(ctx, fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number), nil, &pull); err != nil {
		return forge.ChecksNone, err
	}
	var combined struct {
		State string `json:"state"`
	}
	err := g.client.get(ctx,
		fmt.Sprintf("/repos/%s/%s/commits/%s/status", owner, repo, pull.Head.SHA), nil, &combined)
	if err != nil {
		return forge.ChecksNone, err
	}
	switch combined.State {
	case "success":
		return forge.ChecksSuccess, nil
	case "failure", "error":
		return forge.ChecksFailure, nil
	case "pending":
		return forge.ChecksPending, nil
	default:
		return forge.ChecksNone, nil
	}
}
