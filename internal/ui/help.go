package ui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

type binding struct {
	keys, action string
}

type helpSection struct {
	title    string
	bindings []binding
}

var helpSections = []helpSection{
	{"Anywhere", []binding{
		{"ctrl+c", "stop the run, press again to quit"},
		{"?", "show or hide this help"},
	}},
	{"Picking groups", []binding{
		{"↑/↓ j/k", "move"},
		{"space", "pick or unpick; the number is the send order"},
		{"a", "pick all or none"},
		{"/", "filter by title"},
		{"enter", "start sending to the picked groups"},
		{"q", "quit without sending"},
	}},
	{"Sending", []binding{
		{"s q", "stop after the current send"},
		{"↑/↓ j/k", "scroll the log"},
		{"G end", "follow new lines"},
	}},
}

var helpKeyStyle = lipgloss.NewStyle().Foreground(highlightColor).Bold(true)

// HelpModel is the shortcut overlay.
type HelpModel struct {
	visible       bool
	width, height int
}

func (h HelpModel) IsVisible() bool { return h.visible }

func (h HelpModel) Toggle() HelpModel {
	h.visible = !h.visible
	return h
}

func (h HelpModel) SetSize(w, ht int) HelpModel {
	h.width, h.height = w, ht
	return h
}

func renderHelp() string {
	keyWidth := 0
	for _, s := range helpSections {
		for _, b := range s.bindings {
			keyWidth = max(keyWidth, lipgloss.Width(b.keys))
		}
	}

	var b strings.Builder
	for i, s := range helpSections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(s.title))
		for _, kb := range s.bindings {
			key := helpKeyStyle.Width(keyWidth).Render(kb.keys)
			fmt.Fprintf(&b, "\n  %s  %s", key, kb.action)
		}
	}
	b.WriteString("\n\n" + infoStyle.Render("? or esc to close"))
	return b.String()
}

func (h HelpModel) View() string {
	if !h.visible || h.width == 0 || h.height == 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 3).
		BorderForegroundBlend(rainbowBlend...).
		Render(renderHelp())
}

// BoxOffset centers the box in the terminal.
func (h HelpModel) BoxOffset() (int, int) {
	return centerOffset(h.View(), h.width, h.height)
}
