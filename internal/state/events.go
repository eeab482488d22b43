package state

import "forgedeck/internal/forge"

// Msg is a reducer input: either a dispatch.Message (task result) or one
// of the Event values below (user intent). Mirrors tea.Msg.
type Msg any

// Event is a pure UI-state change or user intent fed into the reducer by
// the input layer. Everything the UI can do is expressed through these
// plus the command vocabulary; the view never touches state directly.
type Event interface{ isEvent() }

// Navigation.

// GoHome pops the stack back to the home screen.
type GoHome struct{}

// GoRepoList pushes the repository list screen.
type GoRepoList struct{}

// Back pops the top screen.
type Back struct{}

// OpenSelected drills into the item under the cursor.
type OpenSelected struct{}

// NextTab and PrevTab cycle the repo view tabs (or home sections).
type NextTab struct{}
type PrevTab struct{}

// Cursor movement within the top screen.

// MoveCursor moves the selection by Delta (negative is up).
type MoveCursor struct{ Delta int }

// CursorTop jumps to the first item; CursorBottom to the last.
type CursorTop struct{}
type CursorBottom struct{}

// Scroll adjusts a detail screen's viewport offset by Delta lines.
type Scroll struct{ Delta int }

// LoadMore requests the next page of the top screen's list.
type LoadMore struct{}

// Refresh drops the cached entries behind the top screen and refetches.
type Refresh struct{}

// ToggleDiff shows or hides the diff section of the pull detail screen.
type ToggleDiff struct{}

// Search.

// StartSearch focuses the filter input.
type StartSearch struct{}

// SetSearch updates the filter term as the user types.
type SetSearch struct{ Term string }

// EndSearch leaves the filter input, keeping the term when Keep is set.
type EndSearch struct{ Keep bool }

// Mutations. The input layer collects any free-form text (comment bodies,
// review bodies) before sending these.

// MergePull merges the pull request shown on the detail screen.
type MergePull struct{ Method forge.MergeMethod }

// ClosePull closes the pull request shown on the detail screen.
type ClosePull struct{}

// CloseIssue closes the issue under the cursor on the issues tab.
type CloseIssue struct{}

// SubmitComment comments on the focused pull request or selected issue.
type SubmitComment struct{ Body string }

// SubmitReview submits a review on the focused pull request.
type SubmitReview struct {
	Event forge.ReviewEvent
	Body  string
}

// Side effects. URLs and text are resolved by the input layer (it owns the
// registry); the reducer passes them through as commands.

// OpenURL opens a browser on the given URL.
type OpenURL struct{ URL string }

// CopyText puts text on the clipboard.
type CopyText struct{ Text string }

func (GoHome) isEvent()        {}
func (GoRepoList) isEvent()    {}
func (Back) isEvent()          {}
func (OpenSelected) isEvent()  {}
func (NextTab) isEvent()       {}
func (PrevTab) isEvent()       {}
func (MoveCursor) isEvent()    {}
func (CursorTop) isEvent()     {}
func (CursorBottom) isEvent()  {}
func (Scroll) isEvent()        {}
func (LoadMore) isEvent()      {}
func (Refresh) isEvent()       {}
func (ToggleDiff) isEvent()    {}
func (StartSearch) isEvent()   {}
func (SetSearch) isEvent()     {}
func (EndSearch) isEvent()     {}
func (MergePull) isEvent()     {}
func (ClosePull) isEvent()     {}
func (CloseIssue) isEvent()    {}
func (SubmitComment) isEvent() {}
func (SubmitReview) isEvent()  {}
func (OpenURL) isEvent()       {}
func (CopyText) isEvent()      {}
