package ui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/danhigham/groupcast/internal/dispatch"
)

var (
	statusBarBg     = lipgloss.Color("#353533")
	statusPillBg    = lipgloss.Color("#FF5FAF") // running
	statusPillBgOff = lipgloss.Color("#6C5098")
	statusTimeBg    = lipgloss.Color("#6124DF")
	statusUserBg    = lipgloss.Color("#7B5EA7")
)

type statusModel struct {
	text     string
	running  bool
	counters dispatch.Counters
	targets  int
	userName string
	width    int
}

func newStatusModel(userName string) statusModel {
	return statusModel{text: "Pick groups", userName: userName}
}

func (m statusModel) SetWidth(w int) statusModel {
	m.width = w
	return m
}

// Observe counts per-target results as they arrive; DoneMsg replaces the
// totals with the engine's own at the end.
func (m statusModel) Observe(ev dispatch.Event) statusModel {
	switch ev.Kind {
	case dispatch.EventLoopStarted:
		m.counters.Loops = ev.Loop
	case dispatch.EventSent:
		m.counters.Success++
		m.counters.Total++
	case dispatch.EventFailed:
		m.counters.Failed++
		m.counters.Total++
	}
	return m
}

func pill(bg color.Color, text string) string {
	return lipgloss.NewStyle().
		Background(bg).
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true).
		Padding(0, 1).
		Render(text)
}

// counterText is empty until there is something to send.
func (m statusModel) counterText() string {
	if m.targets == 0 {
		return ""
	}
	c := m.counters
	s := fmt.Sprintf("%d groups  ✓ %d  ✗ %d  total %d", m.targets, c.Success, c.Failed, c.Total)
	if c.Loops > 1 {
		s += fmt.Sprintf("  pass %d", c.Loops)
	}
	return s
}

// View lays out [state][counters] ... [account][clock] across the width.
func (m statusModel) View() string {
	stateBg := statusPillBgOff
	if m.running {
		stateBg = statusPillBg
	}
	left := pill(stateBg, strings.ToUpper(m.text)) + pill(statusBarBg, m.counterText())
	right := pill(statusUserBg, m.userName) + pill(statusTimeBg, time.Now().Format("15:04"))

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().Background(statusBarBg).Render(strings.Repeat(" ", gap))

	return lipgloss.NewStyle().
		Background(statusBarBg).
		Width(m.width).
		Render(left + filler + right)
}
