package forge

import (
	"context"
	"testing"
)

type stubForge struct {
	Unsupported
	name string
}

func (s stubForge) Name() string                                   { return s.name }
func (s stubForge) WebURL(string, string, Kind, string) string     { return "" }
func (s stubForge) CurrentUser(context.Context) (string, error)    { return "stub", nil }
func (s stubForge) ListRepos(context.Context, int) (Paged[Repository], error) {
	return Paged[Repository]{}, nil
}
func (s stubForge) ListPulls(context.Context, string, string, int) (Paged[PullSummary], error) {
	return Paged[PullSummary]{}, nil
}
func (s stubForge) GetPull(context.Context, string, string, int) (PullRequest, error) {
	return PullRequest{}, nil
}
func (s stubForge) PullDiff(context.Context, string, string, int) (string, error) { return "", nil }
func (s stubForge) ListIssues(context.Context, string, string, int) (Paged[Issue], error) {
	return Paged[Issue]{}, nil
}
func (s stubForge) ListCommits(context.Context, string, string, int) (Paged[Commit], error) {
	return Paged[Commit]{}, nil
}
func (s stubForge) GetCommit(context.Context, string, string, string) (CommitDetail, error) {
	return CommitDetail{}, nil
}
func (s stubForge) MergePull(context.Context, string, string, int, MergeMethod) error { return nil }
func (s stubForge) ClosePull(context.Context, string, string, int) error              { return nil }
func (s stubForge) CloseIssue(context.Context, string, string, int) error             { return nil }
func (s stubForge) Comment(context.Context, string, string, int, string) error        { return nil }
func (s stubForge) SubmitReview(context.Context, string, string, int, ReviewEvent, string) error {
	return nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("github", stubForge{name: "github"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	f, err := r.Resolve("github")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if f.Name() != "github" {
		t.Fatalf("resolved wrong backend: %s", f.Name())
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("gitea", stubForge{name: "gitea"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("gitea", stubForge{name: "gitea"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("sourcehut"); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
}
