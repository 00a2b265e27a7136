package ui

import (
	"fmt"
	"io"

	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/danhigham/groupcast/internal/domain"
)

// groupItem implements list.Item for the group picker.
type groupItem struct {
	group domain.Group
}

func (i groupItem) FilterValue() string { return i.group.Title }

// pickOrder records the ids picked so far, in the order they were picked.
// It is shared between the model and the delegate.
type pickOrder struct {
	ids []int64
}

func (p *pickOrder) position(id int64) int {
	for i, v := range p.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (p *pickOrder) toggle(id int64) {
	if i := p.position(id); i >= 0 {
		p.ids = append(p.ids[:i], p.ids[i+1:]...)
		return
	}
	p.ids = append(p.ids, id)
}

// groupItemDelegate renders a groupItem in the list.
type groupItemDelegate struct {
	picked *pickOrder
}

func (d groupItemDelegate) Height() int                             { return 2 }
func (d groupItemDelegate) Spacing() int                            { return 1 }
func (d groupItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d groupItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	gi, ok := item.(groupItem)
	if !ok {
		return
	}
	g := gi.group

	mark := "[ ]"
	if pos := d.picked.position(g.ID); pos >= 0 {
		mark = fmt.Sprintf("[%d]", pos+1)
	}

	desc := g.Kind.String()
	if g.Members != nil {
		desc = fmt.Sprintf("%s, %d members", desc, *g.Members)
	}

	// Account for the cursor prefix and the mark.
	contentWidth := m.Width() - 2 - len(mark) - 1
	if contentWidth < 1 {
		contentWidth = 1
	}

	titleStyle := lipgloss.NewStyle().MaxWidth(contentWidth).MaxHeight(1)
	descStyle := lipgloss.NewStyle().MaxWidth(contentWidth).MaxHeight(1).Foreground(lipgloss.Color("240"))

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
		titleStyle = titleStyle.Foreground(lipgloss.Color("170")).Bold(true)
		descStyle = descStyle.Foreground(lipgloss.Color("250"))
	}
	pad := "  " + lipgloss.NewStyle().Width(len(mark)+1).Render("")

	fmt.Fprintf(w, "%s%s %s\n%s%s", cursor, mark, titleStyle.Render(g.Title), pad, descStyle.Render(desc))
}

// GroupListModel wraps bubbles/list to pick the send targets.
type GroupListModel struct {
	list    list.Model
	picked  *pickOrder
	focused bool
	width   int
	height  int
}

func NewGroupListModel() GroupListModel {
	picked := &pickOrder{}
	l := list.New(nil, groupItemDelegate{picked: picked}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	return GroupListModel{list: l, picked: picked, focused: true}
}

func (m GroupListModel) Update(msg tea.Msg) (GroupListModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch msg.String() {
		case "space", " ":
			if item, ok := m.list.SelectedItem().(groupItem); ok {
				m.picked.toggle(item.group.ID)
			}
			return m, nil
		case "a":
			m = m.toggleAll()
			return m, nil
		case "enter":
			if len(m.picked.ids) == 0 {
				return m, nil
			}
			ids := append([]int64(nil), m.picked.ids...)
			return m, func() tea.Msg { return groupsChosenMsg{ids: ids} }
		}
	}

	// Navigation and filtering are handled by the list.
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// toggleAll picks every group in list order, or clears the picks when all
// groups are already picked.
func (m GroupListModel) toggleAll() GroupListModel {
	items := m.list.Items()
	if len(m.picked.ids) == len(items) {
		m.picked.ids = nil
		return m
	}
	for _, it := range items {
		if gi, ok := it.(groupItem); ok && m.picked.position(gi.group.ID) < 0 {
			m.picked.ids = append(m.picked.ids, gi.group.ID)
		}
	}
	return m
}

// Filtering reports whether the filter input has focus.
func (m GroupListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m GroupListModel) View() string {
	contentH := m.height - 2
	if contentH < 0 {
		contentH = 0
	}

	content := truncateHeight(m.list.View(), contentH)

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(m.width).
		Height(m.height)
	style = applyBorderColor(style, m.focused)

	return style.Render(content)
}

// WithGroups replaces the items. Picks are seeded from selected, which keeps
// its order.
func (m GroupListModel) WithGroups(groups []domain.Group, selected []int64) GroupListModel {
	items := make([]list.Item, len(groups))
	for i, g := range groups {
		items[i] = groupItem{group: g}
	}
	m.list.SetItems(items)
	m.picked.ids = append([]int64(nil), selected...)
	return m
}

func (m GroupListModel) SetSize(w, h int) GroupListModel {
	m.width = w
	m.height = h
	innerW := w - 2
	innerH := h - 2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}
	m.list.SetSize(innerW, innerH)
	return m
}
