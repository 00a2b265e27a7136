package ui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/danhigham/groupcast/internal/dispatch"
)

// previewMaxLines caps the rendered message preview above the log.
const previewMaxLines = 8

type logLine struct {
	at    time.Time
	event dispatch.Event
}

// LogViewModel shows the outgoing message rendered with glamour and, below
// it, the event log of the run in a viewport.
type LogViewModel struct {
	viewport   viewport.Model
	renderer   *glamour.TermRenderer
	message    string
	attachment string
	preview    string
	lines      []logLine
	focused    bool
	follow     bool
	width      int
	height     int
}

func NewLogViewModel(message, attachment string) LogViewModel {
	return LogViewModel{
		viewport:   viewport.New(),
		message:    message,
		attachment: attachment,
		follow:     true,
		focused:    true,
	}
}

func (m LogViewModel) Update(msg tea.Msg) (LogViewModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "j":
			m.viewport.ScrollDown(1)
			m.follow = m.viewport.AtBottom()
			return m, nil
		case "k":
			m.viewport.ScrollUp(1)
			m.follow = false
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			m.follow = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.follow = m.viewport.AtBottom()
	return m, cmd
}

// Append adds an event to the log. The view keeps following the tail
// unless the user scrolled up.
func (m LogViewModel) Append(at time.Time, ev dispatch.Event) LogViewModel {
	m.lines = append(m.lines, logLine{at: at, event: ev})
	return m.renderContent()
}

func (m LogViewModel) View() string {
	header := m.preview
	if m.attachment != "" {
		header += "\n" + headerStyle.Render("Attachment: "+m.attachment)
	}
	sep := headerStyle.Render(strings.Repeat("─", max(m.width-2, 0)))

	contentH := m.height - 2
	if contentH < 0 {
		contentH = 0
	}
	content := truncateHeight(header+"\n"+sep+"\n"+m.viewport.View(), contentH)

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(m.width).
		Height(m.height)
	style = applyBorderColor(style, m.focused)

	return style.Render(content)
}

func (m LogViewModel) SetSize(w, h int) LogViewModel {
	m.width = w
	m.height = h
	m = m.recreateRenderer()
	m.preview = truncateHeight(m.renderMessageText(m.message), previewMaxLines)

	// Inner area minus the preview, the attachment line and the separator.
	used := lipgloss.Height(m.preview) + 1
	if m.attachment != "" {
		used++
	}
	vpW := w - 2
	vpH := h - 2 - used
	if vpW < 1 {
		vpW = 1
	}
	if vpH < 1 {
		vpH = 1
	}
	m.viewport.SetWidth(vpW)
	m.viewport.SetHeight(vpH)
	return m.renderContent()
}

func (m LogViewModel) recreateRenderer() LogViewModel {
	wordWrap := m.width - 4
	if wordWrap < 10 {
		wordWrap = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wordWrap),
	)
	if err == nil {
		m.renderer = r
	}
	return m
}

func (m LogViewModel) renderContent() LogViewModel {
	var b strings.Builder
	for _, l := range m.lines {
		ts := headerStyle.Render(l.at.Format("15:04:05"))
		fmt.Fprintf(&b, "%s %s\n", ts, formatEvent(l.event))
	}

	wrapped := lipgloss.NewStyle().Width(m.viewport.Width()).Render(strings.TrimRight(b.String(), "\n"))
	m.viewport.SetContent(wrapped)
	if m.follow {
		m.viewport.GotoBottom()
	}
	return m
}

func formatEvent(ev dispatch.Event) string {
	switch ev.Kind {
	case dispatch.EventSent:
		return sentStyle.Render("✓ " + ev.Message)
	case dispatch.EventFailed:
		return failedStyle.Render("✗ " + ev.Message)
	case dispatch.EventSending:
		return sendingStyle.Render("→ " + ev.Message)
	default:
		return infoStyle.Render(ev.Message)
	}
}

func (m LogViewModel) renderMessageText(text string) string {
	if m.renderer == nil {
		return text
	}

	// Glamour joins single newlines into one paragraph. Plain blocks are
	// rendered line by line so the preview keeps the line breaks the
	// recipients will see; fenced code and tables are rendered whole.
	blocks := strings.Split(text, "\n\n")
	renderedBlocks := make([]string, len(blocks))

	for i, block := range blocks {
		if block == "" {
			continue
		}
		if isMultiLineMarkdown(block) {
			renderedBlocks[i] = m.renderBlock(block)
			continue
		}
		lines := strings.Split(block, "\n")
		for j, line := range lines {
			if line != "" {
				lines[j] = m.renderBlock(line)
			}
		}
		renderedBlocks[i] = strings.Join(lines, "\n")
	}

	return strings.Join(renderedBlocks, "\n")
}

// renderBlock renders a single text block through glamour, trimming whitespace.
func (m LogViewModel) renderBlock(text string) string {
	r, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	r = strings.TrimRight(r, "\n ")
	r = strings.TrimLeft(r, "\n")
	return r
}

// isMultiLineMarkdown returns true if the block is a multi-line markdown
// construct that must be rendered as a whole (tables, fenced code blocks).
func isMultiLineMarkdown(block string) bool {
	if !strings.Contains(block, "\n") {
		return false
	}
	trimmed := strings.TrimSpace(block)
	if strings.HasPrefix(trimmed, "```") {
		return true
	}
	for _, line := range strings.Split(trimmed, "\n") {
		if !strings.Contains(line, "|") {
			return false
		}
	}
	return true
}
