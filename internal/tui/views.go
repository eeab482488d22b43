package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"forgedeck/internal/forge"
	"forgedeck/internal/state"
)

var (
	accentColor = lipgloss.Color("#5B8DEF")
	dimColor    = lipgloss.Color("#888888")
	okColor     = lipgloss.Color("#7BC96F")
	warnColor   = lipgloss.Color("#E5C07B")
	badColor    = lipgloss.Color("#E06C75")
	mergedColor = lipgloss.Color("#C678DD")

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	crumbStyle    = lipgloss.NewStyle().Foreground(dimColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	dimStyle      = lipgloss.NewStyle().Foreground(dimColor)
	statusStyle   = lipgloss.NewStyle().Foreground(warnColor)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	tabStyle      = lipgloss.NewStyle().Foreground(dimColor).Padding(0, 1)
	tabActive     = lipgloss.NewStyle().Bold(true).Foreground(accentColor).Padding(0, 1).Underline(true)
)

// View renders the top screen with a breadcrumb header and a status footer.
func (a *App) View() string {
	top := a.state.Top()

	var body string
	switch top.Kind {
	case state.ScreenHome:
		body = a.viewHome(top)
	case state.ScreenRepoList:
		body = a.viewRepoList(top)
	case state.ScreenRepoView:
		body = a.viewRepoView(top)
	case state.ScreenPullDetail:
		body = a.viewPullDetail(top)
	case state.ScreenCommitDetail:
		body = a.viewCommitDetail(top)
	}

	return strings.Join([]string{a.viewHeader(), body, a.viewFooter(top)}, "\n")
}

func (a *App) viewHeader() string {
	crumbs := make([]string, 0, a.state.Depth())
	for i := 0; i < a.state.Depth(); i++ {
		crumbs = append(crumbs, a.state.Screens[i].Title())
	}
	return headerStyle.Render("forgedeck") + "  " +
		crumbStyle.Render(strings.Join(crumbs, " > "))
}

func (a *App) viewFooter(top state.Screen) string {
	left := ""
	switch {
	case a.mode == modeSearch:
		left = a.search.View()
	case a.mode == modeMerge:
		left = statusStyle.Render("merge: [m]erge  [s]quash  [r]ebase  esc cancel")
	case a.mode == modeReview:
		left = statusStyle.Render("review: [a]pprove  [x] request changes  [c]omment  esc cancel")
	case a.mode == modeConfirm:
		left = statusStyle.Render(a.confirm.question + " [y/n]")
	case top.Loading || top.LoadingMore:
		left = a.spin.View() + dimStyle.Render(" loading")
	case top.Status != "":
		left = statusStyle.Render(top.Status)
	case a.state.Search != "":
		left = dimStyle.Render("filter: " + a.state.Search)
	}
	hints := dimStyle.Render(keyHints(top))
	return left + "\n" + hints
}

func keyHints(top state.Screen) string {
	switch top.Kind {
	case state.ScreenHome:
		return "enter open  tab section  e repos  / filter  r refresh  q quit"
	case state.ScreenRepoList:
		return "enter open  n more  / filter  r refresh  esc back"
	case state.ScreenRepoView:
		hints := "enter open  tab switch  n more  / filter  o browser  r refresh  esc back"
		if top.Tab == state.TabIssues {
			hints = "c comment  X close  " + hints
		}
		return hints
	case state.ScreenPullDetail:
		return "d diff  m merge  R review  c comment  X close  o browser  y yank  r refresh  esc back"
	case state.ScreenCommitDetail:
		return "j/k scroll  o browser  y yank  r refresh  esc back"
	default:
		return ""
	}
}

func (a *App) viewHome(top state.Screen) string {
	home, ok := homePayload(a.state)
	if !ok {
		return dimStyle.Render("\n  loading home…")
	}
	term := a.state.Search

	section := func(s state.Section) lipgloss.Style {
		if top.Section == s {
			return titleStyle.Foreground(accentColor)
		}
		return titleStyle
	}

	var b strings.Builder
	b.WriteString("\n" + section(state.SectionReviewRequests).Render("  Review requests") + "\n")
	reqs := state.Filtered(home.ReviewRequests, term)
	if len(reqs) == 0 {
		b.WriteString(dimStyle.Render("    nothing waiting on you") + "\n")
	}
	for i, rr := range reqs {
		row := fmt.Sprintf("%s/%s #%d  %s  %s",
			rr.RepoOwner, rr.RepoName, rr.Number,
			truncate(rr.Title, a.rowWidth()-30), dimStyle.Render("by "+rr.Author))
		b.WriteString(cursorRow(row, top.Section == state.SectionReviewRequests && i == top.Selected) + "\n")
	}

	b.WriteString("\n" + section(state.SectionMyPulls).Render("  My pull requests") + "\n")
	mine := state.Filtered(home.MyPulls, term)
	if len(mine) == 0 {
		b.WriteString(dimStyle.Render("    no open pull requests") + "\n")
	}
	for i, mp := range mine {
		row := fmt.Sprintf("%s  %s/%s #%d  %s",
			checksGlyph(mp.Checks), mp.RepoOwner, mp.RepoName, mp.Number,
			truncate(mp.Title, a.rowWidth()-30))
		b.WriteString(cursorRow(row, top.Section == state.SectionMyPulls && i == top.Selected) + "\n")
	}
	return b.String()
}

func (a *App) viewRepoList(top state.Screen) string {
	repos, ok := listPayload[forge.Repository](a.state, top.Key)
	if !ok {
		return dimStyle.Render("\n  loading repositories…")
	}
	items := state.Filtered(repos, a.state.Search)
	var b strings.Builder
	b.WriteString("\n")
	for i, r := range items {
		row := fmt.Sprintf("%-40s %s %s",
			truncate(r.Owner+"/"+r.Name, 40),
			dimStyle.Render(fmt.Sprintf("★ %-5d", r.Stars)),
			truncate(r.Description, a.rowWidth()-50))
		b.WriteString(cursorRow(row, i == top.Selected) + "\n")
	}
	b.WriteString(pagingLine(top, len(items)))
	return b.String()
}

func (a *App) viewRepoView(top state.Screen) string {
	var tabs []string
	for t := state.TabPulls; t <= state.TabRuns; t++ {
		style := tabStyle
		if t == top.Tab {
			style = tabActive
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	head := "\n" + strings.Join(tabs, " ") + "\n\n"

	var rows string
	switch top.Tab {
	case state.TabPulls:
		rows = a.viewPullRows(top)
	case state.TabIssues:
		rows = a.viewIssueRows(top)
	case state.TabCommits:
		rows = a.viewCommitRows(top)
	case state.TabRuns:
		rows = a.viewRunRows(top)
	}
	return head + rows
}

func (a *App) viewPullRows(top state.Screen) string {
	pulls, ok := listPayload[forge.PullSummary](a.state, top.Key)
	if !ok {
		return dimStyle.Render("  loading pull requests…")
	}
	items := state.Filtered(pulls, a.state.Search)
	if len(items) == 0 {
		return dimStyle.Render("  no pull requests")
	}
	var b strings.Builder
	for i, p := range items {
		row := fmt.Sprintf("%s #%-5d %s  %s",
			pullStateGlyph(p.State), p.Number,
			truncate(p.Title, a.rowWidth()-40),
			dimStyle.Render(p.Author+" · "+relativeTime(p.UpdatedAt)))
		b.WriteString(cursorRow(row, i == top.Selected) + "\n")
	}
	b.WriteString(pagingLine(top, len(items)))
	return b.String()
}

func (a *App) viewIssueRows(top state.Screen) string {
	issues, ok := listPayload[forge.Issue](a.state, top.Key)
	if !ok {
		return dimStyle.Render("  loading issues…")
	}
	items := state.Filtered(issues, a.state.Search)
	if len(items) == 0 {
		return dimStyle.Render("  no open issues")
	}
	var b strings.Builder
	for i, is := range items {
		labels := ""
		if len(is.Labels) > 0 {
			labels = dimStyle.Render(" [" + strings.Join(is.Labels, ", ") + "]")
		}
		row := fmt.Sprintf("#%-5d %s%s  %s",
			is.Number, truncate(is.Title, a.rowWidth()-40), labels,
			dimStyle.Render(fmt.Sprintf("%s · %d comments", is.Author, is.Comments)))
		b.WriteString(cursorRow(row, i == top.Selected) + "\n")
	}
	b.WriteString(pagingLine(top, len(items)))
	return b.String()
}

func (a *App) viewCommitRows(top state.Screen) string {
	commits, ok := listPayload[forge.Commit](a.state, top.Key)
	if !ok {
		return dimStyle.Render("  loading commits…")
	}
	items := state.Filtered(commits, a.state.Search)
	if len(items) == 0 {
		return dimStyle.Render("  no commits")
	}
	var b strings.Builder
	for i, c := range items {
		row := fmt.Sprintf("%s  %s  %s",
			dimStyle.Render(shortSHA(c.SHA)),
			truncate(firstLine(c.Message), a.rowWidth()-40),
			dimStyle.Render(c.Author+" · "+relativeTime(c.Date)))
		b.WriteString(cursorRow(row, i == top.Selected) + "\n")
	}
	b.WriteString(pagingLine(top, len(items)))
	return b.String()
}

func (a *App) viewRunRows(top state.Screen) string {
	runs, ok := listPayload[forge.WorkflowRun](a.state, top.Key)
	if !ok {
		return dimStyle.Render("  loading workflow runs…")
	}
	items := state.Filtered(runs, a.state.Search)
	if len(items) == 0 {
		return dimStyle.Render("  no workflow runs")
	}
	var b strings.Builder
	for i, r := range items {
		row := fmt.Sprintf("%s  %-30s %s  %s",
			runGlyph(r), truncate(r.Name, 30),
			dimStyle.Render(r.Branch+" · "+r.Event),
			dimStyle.Render(relativeTime(r.CreatedAt)))
		b.WriteString(cursorRow(row, i == top.Selected) + "\n")
	}
	b.WriteString(pagingLine(top, len(items)))
	return b.String()
}

func (a *App) viewPullDetail(top state.Screen) string {
	v, ok := a.state.Payload(top.Key)
	if !ok {
		return dimStyle.Render("\n  loading pull request…")
	}
	pr, ok := v.(forge.PullRequest)
	if !ok {
		return dimStyle.Render("\n  loading pull request…")
	}

	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("  #%d %s", pr.Number, pr.Title)) + "\n")
	b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		pullStateGlyph(pr.State),
		dimStyle.Render(fmt.Sprintf("%s wants to merge %s into %s", pr.Author, pr.HeadBranch, pr.BaseBranch)),
		a.checksLine(top)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  +%d -%d · %d files · %d commits · %d comments · opened %s",
		pr.Stats.Additions, pr.Stats.Deletions, pr.Stats.ChangedFiles,
		pr.Stats.Commits, pr.Stats.Comments, relativeTime(pr.CreatedAt))) + "\n\n")

	if top.ShowDiff {
		b.WriteString(a.viewDiff(top))
	} else if pr.Body != "" {
		b.WriteString(a.renderMarkdown(top.Key.String(), pr.Body))
	}
	return scrollWindow(b.String(), top.Scroll, a.contentHeight())
}

func (a *App) checksLine(top state.Screen) string {
	checksKey := top.Key
	checksKey.Kind = forge.KindCheckStatus
	v, ok := a.state.Payload(checksKey)
	if !ok {
		return ""
	}
	checks, ok := v.(forge.ChecksStatus)
	if !ok || checks == forge.ChecksNone {
		return ""
	}
	return checksGlyph(checks) + dimStyle.Render(" checks "+string(checks))
}

func (a *App) viewDiff(top state.Screen) string {
	diffKey := top.Key
	diffKey.Kind = forge.KindPullDiff
	v, ok := a.state.Payload(diffKey)
	if !ok {
		return dimStyle.Render("  loading diff…")
	}
	diff, ok := v.(string)
	if !ok {
		return dimStyle.Render("  loading diff…")
	}
	var b strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			b.WriteString(lipgloss.NewStyle().Foreground(okColor).Render(line))
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			b.WriteString(lipgloss.NewStyle().Foreground(badColor).Render(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(lipgloss.NewStyle().Foreground(accentColor).Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewCommitDetail(top state.Screen) string {
	v, ok := a.state.Payload(top.Key)
	if !ok {
		return dimStyle.Render("\n  loading commit…")
	}
	c, ok := v.(forge.CommitDetail)
	if !ok {
		return dimStyle.Render("\n  loading commit…")
	}

	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("  "+firstLine(c.Message)) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s · %s · %s",
		shortSHA(c.SHA), c.Author, relativeTime(c.Date))) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  +%d -%d across %d files",
		c.Stats.Additions, c.Stats.Deletions, len(c.Files))) + "\n\n")
	if rest := restLines(c.Message); rest != "" {
		b.WriteString(rest + "\n\n")
	}
	for _, f := range c.Files {
		b.WriteString(fmt.Sprintf("  %-60s %s\n",
			truncate(f.Filename, 60),
			dimStyle.Render(fmt.Sprintf("%s +%d -%d", f.Status, f.Additions, f.Deletions))))
	}
	return scrollWindow(b.String(), top.Scroll, a.contentHeight())
}

// renderMarkdown runs glamour once per key and caches the result; detail
// bodies do not change between renders of the same payload.
func (a *App) renderMarkdown(key, body string) string {
	cacheKey := fmt.Sprintf("%s@%d", key, a.rowWidth())
	if cached, ok := a.mdCache[cacheKey]; ok {
		return cached
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(a.rowWidth()),
	)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	a.mdCache[cacheKey] = out
	return out
}

// Rendering helpers.

func cursorRow(row string, selected bool) string {
	if selected {
		return selectedStyle.Render("  > " + row)
	}
	return "    " + row
}

func pagingLine(top state.Screen, shown int) string {
	switch {
	case top.LoadingMore:
		return dimStyle.Render("  loading more…")
	case top.HasMore:
		return dimStyle.Render(fmt.Sprintf("  %d shown · n for more", shown))
	default:
		return ""
	}
}

func pullStateGlyph(s forge.PullState) string {
	switch s {
	case forge.PullMerged:
		return lipgloss.NewStyle().Foreground(mergedColor).Render("⇌")
	case forge.PullClosed:
		return lipgloss.NewStyle().Foreground(badColor).Render("✗")
	default:
		return lipgloss.NewStyle().Foreground(okColor).Render("●")
	}
}

func checksGlyph(s forge.ChecksStatus) string {
	switch s {
	case forge.ChecksSuccess:
		return lipgloss.NewStyle().Foreground(okColor).Render("✓")
	case forge.ChecksFailure:
		return lipgloss.NewStyle().Foreground(badColor).Render("✗")
	case forge.ChecksPending:
		return lipgloss.NewStyle().Foreground(warnColor).Render("●")
	default:
		return dimStyle.Render("-")
	}
}

func runGlyph(r forge.WorkflowRun) string {
	if r.Status != "completed" {
		return lipgloss.NewStyle().Foreground(warnColor).Render("●")
	}
	if r.Conclusion == "success" {
		return lipgloss.NewStyle().Foreground(okColor).Render("✓")
	}
	return lipgloss.NewStyle().Foreground(badColor).Render("✗")
}

// scrollWindow slices content to the visible viewport.
func scrollWindow(content string, offset, height int) string {
	if height <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	if offset >= len(lines) {
		offset = max(0, len(lines)-1)
	}
	end := min(len(lines), offset+height)
	return strings.Join(lines[offset:end], "\n")
}

func (a *App) rowWidth() int {
	if a.width > 20 {
		return a.width - 4
	}
	return 100
}

func (a *App) contentHeight() int {
	if a.height > 6 {
		return a.height - 5
	}
	return 40
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func restLines(s string) string {
	_, rest, found := strings.Cut(s, "\n")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
