package ui

import (
	"fmt"

	"charm.land/lipgloss/v2"

	"github.com/danhigham/groupcast/internal/dispatch"
)

// SummaryModel renders the final counters of a run as a centered overlay.
type SummaryModel struct {
	visible       bool
	stopped       bool
	counters      dispatch.Counters
	err           error
	width, height int
}

// Show makes the overlay visible with the result of the run.
func (s SummaryModel) Show(c dispatch.Counters, stopped bool, err error) SummaryModel {
	s.visible = true
	s.counters = c
	s.stopped = stopped
	s.err = err
	return s
}

// SetSize updates the terminal dimensions for centering.
func (s SummaryModel) SetSize(w, h int) SummaryModel {
	s.width = w
	s.height = h
	return s
}

// IsVisible reports whether the overlay is showing.
func (s SummaryModel) IsVisible() bool {
	return s.visible
}

func (s SummaryModel) View() string {
	if !s.visible {
		return ""
	}

	title := "Done"
	if s.stopped {
		title = "Stopped"
	}
	body := fmt.Sprintf("%s\n\n  Sent:    %d\n  Failed:  %d\n  Total:   %d\n  Loops:   %d",
		lipgloss.NewStyle().Bold(true).Render(title),
		s.counters.Success, s.counters.Failed, s.counters.Total, s.counters.Loops)
	if s.err != nil {
		body += "\n\n" + failedStyle.Render(s.err.Error())
	}
	body += "\n\n" + infoStyle.Render("Press any key to exit")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlightColor).
		Padding(1, 3).
		Render(body)
}

// BoxOffset returns the (x, y) needed to center the box.
func (s SummaryModel) BoxOffset() (int, int) {
	return centerOffset(s.View(), s.width, s.height)
}
