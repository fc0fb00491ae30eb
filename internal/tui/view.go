package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hackline/labtui/internal/catalog"
)

// Monochrome-leaning theme, adaptive for light and dark terminals.
var (
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().Bold(true)

	cursorRowStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}).
			Bold(true)

	activeMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#007700", Dark: "#55cc55"}).
			Bold(true)

	ownedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#007700", Dark: "#55cc55"})

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().Italic(true).Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#aa0000", Dark: "#ff5555"}).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1)

	flagPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}).
			Bold(true)
)

// nameColWidth is the widest the machine name column gets.
const nameColWidth = 18

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := fmt.Sprintf("labtui %s", m.version)
	if m.pending() {
		title += "  " + spinnerFrames[m.spinnerFrame]
	}
	b.WriteString(titleBarStyle.Render(title))
	b.WriteString("\n")

	if m.loading {
		b.WriteString(statusStyle.Render("loading machines..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.renderList())
	b.WriteString(footerStyle.Render(fmt.Sprintf("filter: %s   sort: %s", m.vm.filter, m.vm.sort)))
	b.WriteString("\n")

	if panel := m.renderActivePanel(); panel != "" {
		b.WriteString(panel)
		b.WriteString("\n")
	}

	if m.mode == modeFlag {
		b.WriteString(flagPromptStyle.Render(" flag> "))
		b.WriteString(m.flagInput.View())
		b.WriteString("\n")
	}

	if m.status != "" {
		style := statusStyle
		if m.statusIsErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	return b.String()
}

// renderList renders the header row plus the visible window of machines.
func (m Model) renderList() string {
	var b strings.Builder

	header := fmt.Sprintf("  %s %-10s %-8s %4s  U R",
		padRight("NAME", nameColWidth), "OS", "DIFF", "PTS")
	b.WriteString(tableHeaderStyle.Render(header))
	b.WriteString("\n")

	vis := m.vm.visible()
	if len(vis) == 0 {
		b.WriteString(statusStyle.Render("no machines match the current filter"))
		b.WriteString("\n")
		return b.String()
	}

	start, end := m.window(len(vis))
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(vis[i], i == m.vm.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

// window returns the [start, end) slice of the visible list that fits the
// current page, keeping the cursor inside it.
func (m Model) window(n int) (int, int) {
	start := 0
	if m.vm.cursor >= m.pageSize {
		start = m.vm.cursor - m.pageSize + 1
	}
	end := start + m.pageSize
	if end > n {
		end = n
	}
	return start, end
}

func (m Model) renderRow(machine catalog.Machine, selected bool) string {
	marker := "  "
	if selected {
		marker = "> "
	}

	userTick := tick(machine.UserOwned)
	rootTick := tick(machine.RootOwned)
	if machine.UserOwned {
		userTick = ownedStyle.Render(userTick)
	}
	if machine.RootOwned {
		rootTick = ownedStyle.Render(rootTick)
	}

	activeMark := ""
	if machine.Active {
		activeMark = activeMarkStyle.Render("ACTIVE")
	}

	row := fmt.Sprintf("%s%s %-10s %-8s %4d  %s %s  %s",
		marker,
		padRight(truncate(machine.Name, nameColWidth), nameColWidth),
		truncate(machine.OS, 10),
		machine.Difficulty,
		machine.Points,
		userTick,
		rootTick,
		activeMark,
	)
	if selected {
		return cursorRowStyle.Render(row)
	}
	return row
}

// renderActivePanel shows the active machine's name and address, if one
// exists.
func (m Model) renderActivePanel() string {
	active, ok := m.vm.activeMachine()
	if !ok {
		return ""
	}
	ip := active.IP
	if ip == "" {
		ip = "N/A"
	}
	return activePanelStyle.Render(fmt.Sprintf("active: %s  %s", active.Name, ip))
}
