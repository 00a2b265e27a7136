package ui

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
)

// Event line styles, keyed by outcome.
var (
	sentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	sendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	infoStyle    = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	headerStyle  = lipgloss.NewStyle().Foreground(dimColor)
)

var (
	dimColor       = lipgloss.Color("240")
	highlightColor = lipgloss.Color("#FF6B9D")

	rainbowBlend = []color.Color{
		highlightColor,
		lipgloss.Color("#9B59B6"),
		lipgloss.Color("#3498DB"),
		lipgloss.Color("#2ECC71"),
		highlightColor,
	}
)

func applyBorderColor(s lipgloss.Style, focused bool) lipgloss.Style {
	if !focused {
		return s.BorderForeground(dimColor)
	}
	return s.BorderForegroundBlend(rainbowBlend...)
}

// truncateHeight keeps the first maxLines lines of s.
func truncateHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	if i := nthNewline(s, maxLines); i >= 0 {
		return s[:i]
	}
	return s
}

func nthNewline(s string, n int) int {
	off := 0
	for range n {
		i := strings.IndexByte(s[off:], '\n')
		if i < 0 {
			return -1
		}
		off += i + 1
	}
	return off - 1
}

func centerOffset(box string, w, h int) (int, int) {
	x := (w - lipgloss.Width(box)) / 2
	y := (h - lipgloss.Height(box)) / 2
	return max(x, 0), max(y, 0)
}
