package ui

import (
	"github.com/danhigham/groupcast/internal/dispatch"
)

// EventMsg carries one dispatch event into the program.
type EventMsg struct {
	Event dispatch.Event
}

// DoneMsg reports the end of a run.
type DoneMsg struct {
	Counters dispatch.Counters
	Err      error
}

// groupsChosenMsg is emitted when the user confirms the selection.
type groupsChosenMsg struct {
	ids []int64
}

// clockTickMsg triggers a status bar time refresh.
type clockTickMsg struct{}
