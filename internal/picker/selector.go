package picker

import (
	"github.com/runger/texo/internal/frecency"
)

// State is a state of the selection state machine.
type State int

const (
	StateListing   State = iota // Showing the ranked candidates, no filter typed yet
	StateFiltering              // Filter text typed since entering Listing
	StateConfirmed              // Terminal: a candidate was chosen
	StateCancelled              // Terminal: the user aborted
)

func (s State) String() string {
	switch s {
	case StateListing:
		return "listing"
	case StateFiltering:
		return "filtering"
	case StateConfirmed:
		return "confirmed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled
}

// EventKind identifies an input event.
type EventKind int

const (
	EventType      EventKind = iota // Text typed into the filter
	EventBackspace                  // Delete the last filter rune
	EventUp                         // Move highlight up
	EventDown                       // Move highlight down
	EventConfirm                    // Choose the highlighted candidate
	EventCancel                     // Abort
)

// Event is one discrete input to the Selector.
type Event struct {
	Kind EventKind
	Text string // EventType only
}

// Type returns an EventType event for text.
func Type(text string) Event { return Event{Kind: EventType, Text: text} }

// Selector is the interactive selection state machine. It has no terminal
// dependency: a UI translates key presses into Events and renders the
// Selector's visible list.
type Selector struct {
	all     []frecency.Candidate
	visible []frecency.Candidate
	filter  string
	index   int // Index into visible; -1 when visible is empty
	state   State
	result  string
}

// NewSelector starts in StateListing with the top-ranked candidate
// highlighted.
func NewSelector(candidates []frecency.Candidate) *Selector {
	s := &Selector{
		all:     candidates,
		visible: candidates,
		state:   StateListing,
	}
	s.clamp()
	return s
}

// Apply feeds one event to the state machine and returns the new state.
// Events after a terminal state are ignored.
func (s *Selector) Apply(ev Event) State {
	if s.state.Terminal() {
		return s.state
	}

	switch ev.Kind {
	case EventType:
		if ev.Text == "" {
			return s.state
		}
		s.filter += ev.Text
		s.state = StateFiltering
		s.refilter()

	case EventBackspace:
		if s.filter == "" {
			return s.state
		}
		r := []rune(s.filter)
		s.filter = string(r[:len(r)-1])
		s.state = StateFiltering
		s.refilter()

	case EventUp:
		if s.index > 0 {
			s.index--
		}

	case EventDown:
		if s.index < len(s.visible)-1 {
			s.index++
		}

	case EventConfirm:
		if s.index < 0 {
			return s.state
		}
		s.result = s.visible[s.index].Path
		s.state = StateConfirmed

	case EventCancel:
		s.state = StateCancelled
	}

	return s.state
}

// refilter layers the live filter text on top of the original candidates.
func (s *Selector) refilter() {
	s.visible = frecency.Refine(s.filter, s.all)
	s.clamp()
}

// clamp keeps the highlight inside the visible list.
func (s *Selector) clamp() {
	if len(s.visible) == 0 {
		s.index = -1
		return
	}
	if s.index < 0 {
		s.index = 0
	}
	if s.index >= len(s.visible) {
		s.index = len(s.visible) - 1
	}
}

// State returns the current state.
func (s *Selector) State() State { return s.state }

// Filter returns the live filter text.
func (s *Selector) Filter() string { return s.filter }

// Index returns the highlighted index into Visible, or -1.
func (s *Selector) Index() int { return s.index }

// Visible returns the candidates currently shown.
func (s *Selector) Visible() []frecency.Candidate { return s.visible }

// Result returns the chosen path once the state is StateConfirmed.
func (s *Selector) Result() (string, bool) {
	return s.result, s.state == StateConfirmed
}
