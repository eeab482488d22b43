package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"forgedeck/internal/forge"
	"forgedeck/internal/state"
)

// handleKey translates one keypress into a reducer event under the current
// input mode. Prompt modes consume every key until resolved.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.mode {
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeMerge:
		return a.handleMergeKey(msg)
	case modeReview:
		return a.handleReviewKey(msg)
	case modeConfirm:
		return a.handleConfirmKey(msg)
	}
	return a.handleNormalKey(msg)
}

func (a *App) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	top := a.state.Top()

	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit

	case "esc", "backspace":
		a.apply(state.Back{})
	case "H":
		a.apply(state.GoHome{})
	case "e":
		a.apply(state.GoRepoList{})
	case "enter", "l":
		a.apply(state.OpenSelected{})

	case "tab":
		a.apply(state.NextTab{})
	case "shift+tab":
		a.apply(state.PrevTab{})

	case "j", "down":
		a.apply(state.MoveCursor{Delta: 1})
	case "k", "up":
		a.apply(state.MoveCursor{Delta: -1})
	case "ctrl+d", "pgdown":
		a.apply(state.MoveCursor{Delta: a.pageStride()})
	case "ctrl+u", "pgup":
		a.apply(state.MoveCursor{Delta: -a.pageStride()})
	case "g", "home":
		a.apply(state.CursorTop{})
	case "G", "end":
		a.apply(state.CursorBottom{})

	case "n":
		a.apply(state.LoadMore{})
	case "r":
		a.apply(state.Refresh{})
	case "d":
		a.apply(state.ToggleDiff{})

	case "/":
		a.mode = modeSearch
		a.search.SetValue(a.state.Search)
		a.search.Focus()
		a.apply(state.StartSearch{})

	case "o":
		if url := a.selectedURL(); url != "" {
			a.apply(state.OpenURL{URL: url})
		}
	case "y":
		if url := a.selectedURL(); url != "" {
			a.apply(state.CopyText{Text: url})
		}

	case "m":
		if top.Kind == state.ScreenPullDetail {
			a.mode = modeMerge
		}
	case "R":
		if top.Kind == state.ScreenPullDetail {
			a.mode = modeReview
		}
	case "c":
		if top.Kind == state.ScreenPullDetail ||
			(top.Kind == state.ScreenRepoView && top.Tab == state.TabIssues) {
			return a, a.editBody(func(body string) state.Event {
				return state.SubmitComment{Body: body}
			})
		}
	case "X":
		switch {
		case top.Kind == state.ScreenPullDetail:
			a.mode = modeConfirm
			a.confirm = confirmPrompt{
				question: "close this pull request?",
				event:    state.ClosePull{},
			}
		case top.Kind == state.ScreenRepoView && top.Tab == state.TabIssues:
			a.mode = modeConfirm
			a.confirm = confirmPrompt{
				question: "close the selected issue?",
				event:    state.CloseIssue{},
			}
		}
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.mode = modeNormal
		a.search.Blur()
		a.apply(state.EndSearch{Keep: true})
		return a, nil
	case "esc":
		a.mode = modeNormal
		a.search.Blur()
		a.apply(state.EndSearch{Keep: false})
		return a, nil
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	a.apply(state.SetSearch{Term: a.search.Value()})
	return a, cmd
}

func (a *App) handleMergeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.mode = modeNormal
	switch msg.String() {
	case "m":
		a.apply(state.MergePull{Method: forge.MergeDefault})
	case "s":
		a.apply(state.MergePull{Method: forge.MergeSquash})
	case "r":
		a.apply(state.MergePull{Method: forge.MergeRebase})
	}
	return a, nil
}

func (a *App) handleReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.mode = modeNormal
	switch msg.String() {
	case "a":
		a.apply(state.SubmitReview{Event: forge.ReviewApprove})
	case "x":
		return a, a.editBody(func(body string) state.Event {
			return state.SubmitReview{Event: forge.ReviewRequestChanges, Body: body}
		})
	case "c":
		return a, a.editBody(func(body string) state.Event {
			return state.SubmitReview{Event: forge.ReviewComment, Body: body}
		})
	}
	return a, nil
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.mode = modeNormal
	if msg.String() == "y" {
		a.apply(a.confirm.event)
	}
	a.confirm = confirmPrompt{}
	return a, nil
}

// pageStride is the cursor jump for half-page movement.
func (a *App) pageStride() int {
	if a.height > 8 {
		return (a.height - 8) / 2
	}
	return 10
}
