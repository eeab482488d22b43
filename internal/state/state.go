package state

import (
	"maps"
	"slices"

	"forgedeck/internal/dispatch"
	"forgedeck/internal/forge"
)

// AppState is the whole application state. It is owned exclusively by the
// reducer: created once at startup, replaced wholesale by each transition,
// and read by the view. The epoch counts navigation changes; any task
// result stamped with an older epoch is ignored.
type AppState struct {
	// Provider is the active provider identifier, set at startup from
	// config/detection.
	Provider string
	// Screens is the navigation stack, most recent last.
	Screens []Screen
	// Focused is the entity reference of the top screen.
	Focused forge.ResourceKey
	// Epoch increments exactly once per navigation-changing transition.
	Epoch uint64
	// Data maps ResourceKey strings to the view data loaded for them.
	// Values are normalized records, never referenced by any Screen
	// directly.
	Data map[string]any
	// Search is the active filter term, empty when not searching.
	Search string
	// Searching is true while the search input is focused.
	Searching bool
}

// Initial builds the starting state on the home screen and the commands
// that populate it.
func Initial(provider string) (AppState, []dispatch.Command) {
	key := HomeKey(provider)
	s := AppState{
		Provider: provider,
		Screens:  []Screen{{Kind: ScreenHome, Key: key, Loading: true}},
		Focused:  key,
		Data:     map[string]any{},
	}
	return s, []dispatch.Command{dispatch.Fetch{Key: key}}
}

// Top returns the current screen descriptor. The zero Screen is returned
// for an empty stack, which only occurs transiently during quit.
func (s AppState) Top() Screen {
	if len(s.Screens) == 0 {
		return Screen{}
	}
	return s.Screens[len(s.Screens)-1]
}

// Depth reports the navigation stack depth.
func (s AppState) Depth() int { return len(s.Screens) }

// Payload looks up the loaded record for a key, if any.
func (s AppState) Payload(key forge.ResourceKey) (any, bool) {
	v, ok := s.Data[key.String()]
	return v, ok
}

// clone returns a state whose screens and data table can be modified
// without aliasing the input. Payload values themselves are immutable by
// convention, so a shallow copy of the table is enough.
func (s AppState) clone() AppState {
	s.Screens = slices.Clone(s.Screens)
	s.Data = maps.Clone(s.Data)
	return s
}

// top returns a pointer into the cloned stack. Only call on a clone.
func (s *AppState) top() *Screen {
	return &s.Screens[len(s.Screens)-1]
}

// push adds a screen and bumps the epoch: the focused entity changed, so
// results issued for the previous screen must not land on this one.
func (s *AppState) push(scr Screen) {
	s.Screens = append(s.Screens, scr)
	s.Focused = scr.Key
	s.Epoch++
}

// pop removes the top screen. Popping the last screen is a no-op; quitting
// is the input layer's decision, not a state transition.
func (s *AppState) pop() {
	if len(s.Screens) <= 1 {
		return
	}
	s.Screens = s.Screens[:len(s.Screens)-1]
	s.Focused = s.top().Key
	s.Epoch++
}

// refocus updates the top screen's key in place (tab switches and similar
// replace-navigation). The epoch moves only when the entity actually
// changed.
func (s *AppState) refocus(key forge.ResourceKey) {
	if s.top().Key == key {
		return
	}
	s.top().Key = key
	s.Focused = key
	s.Epoch++
}

// screensFor iterates over every screen (of the clone) that displays key.
func (s *AppState) screensFor(key forge.ResourceKey, fn func(*Screen)) {
	for i := range s.Screens {
		if s.Screens[i].Key == key {
			fn(&s.Screens[i])
		}
	}
}
