// Package tui is the terminal frontend. It follows the Elm shape bubbletea
// imposes (Model, Update, View) but keeps almost no state of its own: the
// application state lives in the reducer, tasks run in the dispatcher, and
// this package only translates keys into events and state into text.
package tui

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"forgedeck/internal/dispatch"
	"forgedeck/internal/forge"
	"forgedeck/internal/state"
)

// inputMode tracks what the next keypress means. Normal mode feeds the
// keymap; the other modes are short-lived prompts collecting one decision.
type inputMode int

const (
	modeNormal inputMode = iota
	modeSearch
	modeMerge
	modeReview
	modeConfirm
)

// resultMsg wraps a dispatcher result for the bubbletea loop.
type resultMsg struct{ m dispatch.Message }

// editorMsg carries the event built from an external editor session.
type editorMsg struct {
	event state.Event
	err   error
}

// App is the bubbletea model.
type App struct {
	state      state.AppState
	dispatcher *dispatch.Dispatcher
	controller *dispatch.Controller
	forges     *forge.Registry
	log        *zap.Logger

	mode    inputMode
	confirm confirmPrompt
	search  textinput.Model
	spin    spinner.Model

	width  int
	height int

	initCmds []dispatch.Command
	mdCache  map[string]string
}

type confirmPrompt struct {
	question string
	event    state.Event
}

// New builds the application model for one provider.
func New(provider string, forges *forge.Registry, d *dispatch.Dispatcher, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	st, cmds := state.Initial(provider)

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "filter"
	search.CharLimit = 80

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(accentColor)

	return &App{
		state:      st,
		dispatcher: d,
		controller: dispatch.NewController(),
		forges:     forges,
		log:        log,
		search:     search,
		spin:       spin,
		initCmds:   cmds,
		mdCache:    map[string]string{},
	}
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(a *App) error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init dispatches the initial fetches and starts the result pump.
func (a *App) Init() tea.Cmd {
	for _, cmd := range a.initCmds {
		a.dispatcher.Dispatch(cmd, a.state.Epoch)
	}
	a.initCmds = nil
	return tea.Batch(a.awaitResult(), a.spin.Tick)
}

// awaitResult blocks on the dispatcher's stream and feeds one message into
// the loop. Re-armed after every receipt, so the loop stays the single
// consumer the stream requires.
func (a *App) awaitResult() tea.Cmd {
	return func() tea.Msg {
		return resultMsg{m: <-a.dispatcher.Messages()}
	}
}

// Update is the bubbletea message handler.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.Width = max(10, msg.Width-4)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case resultMsg:
		// The epoch gate: results issued before the last navigation are
		// dropped here and never reach the reducer.
		if a.controller.Admit(msg.m) {
			a.apply(msg.m)
		} else {
			a.log.Debug("result discarded",
				zap.Uint64("epoch", msg.m.Epoch),
				zap.Uint64("current", a.controller.Current()))
		}
		return a, a.awaitResult()

	case editorMsg:
		if msg.err != nil {
			a.log.Warn("editor session failed", zap.Error(msg.err))
			return a, nil
		}
		if msg.event != nil {
			a.apply(msg.event)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

// apply runs one reducer transition and dispatches whatever it asked for,
// all under the epoch the transition produced.
func (a *App) apply(msg state.Msg) {
	next, cmds := state.Transition(a.state, msg)
	a.state = next
	a.controller.Advance(next.Epoch)
	for _, cmd := range cmds {
		a.dispatcher.Dispatch(cmd, next.Epoch)
	}
}

// editBody opens $EDITOR on a scratch file and maps the saved text to an
// event. An empty body cancels.
func (a *App) editBody(build func(body string) state.Event) tea.Cmd {
	f, err := os.CreateTemp("", "forgedeck-*.md")
	if err != nil {
		return func() tea.Msg { return editorMsg{err: err} }
	}
	path := f.Name()
	f.Close()

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	c := exec.Command(editor, path)
	return tea.ExecProcess(c, func(execErr error) tea.Msg {
		defer os.Remove(path)
		if execErr != nil {
			return editorMsg{err: execErr}
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return editorMsg{err: readErr}
		}
		body := strings.TrimSpace(string(data))
		if body == "" {
			return editorMsg{}
		}
		return editorMsg{event: build(body)}
	})
}

// selectedURL resolves the browser URL for whatever the cursor is on,
// honoring the active filter so the cursor and the URL agree.
func (a *App) selectedURL() string {
	f, err := a.forges.Resolve(a.state.Provider)
	if err != nil {
		return ""
	}
	top := a.state.Top()
	term := a.state.Search

	switch top.Kind {
	case state.ScreenHome:
		home, ok := homePayload(a.state)
		if !ok {
			return ""
		}
		if top.Section == state.SectionReviewRequests {
			items := state.Filtered(home.ReviewRequests, term)
			if top.Selected < len(items) {
				rr := items[top.Selected]
				return f.WebURL(rr.RepoOwner, rr.RepoName, forge.KindPullDetail, fmt.Sprint(rr.Number))
			}
		} else {
			items := state.Filtered(home.MyPulls, term)
			if top.Selected < len(items) {
				mp := items[top.Selected]
				return f.WebURL(mp.RepoOwner, mp.RepoName, forge.KindPullDetail, fmt.Sprint(mp.Number))
			}
		}

	case state.ScreenRepoList:
		if repos, ok := listPayload[forge.Repository](a.state, top.Key); ok {
			items := state.Filtered(repos, term)
			if top.Selected < len(items) {
				return items[top.Selected].URL
			}
		}

	case state.ScreenRepoView:
		switch top.Tab {
		case state.TabPulls:
			if pulls, ok := listPayload[forge.PullSummary](a.state, top.Key); ok {
				items := state.Filtered(pulls, term)
				if top.Selected < len(items) {
					return f.WebURL(top.Key.Owner, top.Key.Repo, forge.KindPullDetail, fmt.Sprint(items[top.Selected].Number))
				}
			}
		case state.TabIssues:
			if issues, ok := listPayload[forge.Issue](a.state, top.Key); ok {
				items := state.Filtered(issues, term)
				if top.Selected < len(items) {
					return f.WebURL(top.Key.Owner, top.Key.Repo, forge.KindIssue, fmt.Sprint(items[top.Selected].Number))
				}
			}
		case state.TabCommits:
			if commits, ok := listPayload[forge.Commit](a.state, top.Key); ok {
				items := state.Filtered(commits, term)
				if top.Selected < len(items) {
					return f.WebURL(top.Key.Owner, top.Key.Repo, forge.KindCommit, items[top.Selected].SHA)
				}
			}
		case state.TabRuns:
			return f.WebURL(top.Key.Owner, top.Key.Repo, forge.KindRunList, "")
		}

	case state.ScreenPullDetail, state.ScreenCommitDetail:
		return f.WebURL(top.Key.Owner, top.Key.Repo, top.Key.Kind, top.Key.ID)
	}
	return ""
}

// Payload lookup helpers shared by the views.

func homePayload(s state.AppState) (forge.HomeData, bool) {
	v, ok := s.Payload(state.HomeKey(s.Provider))
	if !ok {
		return forge.HomeData{}, false
	}
	home, ok := v.(forge.HomeData)
	return home, ok
}

func listPayload[T any](s state.AppState, key forge.ResourceKey) ([]T, bool) {
	v, ok := s.Payload(key)
	if !ok {
		return nil, false
	}
	paged, ok := v.(forge.Paged[T])
	if !ok {
		return nil, false
	}
	return paged.Items, true
}
