package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// handleKey routes a key event to the handler for the current input mode.
// The two modes are strictly isolated: no browse command fires while a flag
// is being composed, and flag editing keys mean nothing in browse mode.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeFlag:
		return m.handleFlagKeys(msg)
	default:
		return m.handleBrowseKeys(msg)
	}
}

// handleBrowseKeys interprets keys in browse mode: navigation, filter and
// sort cycling, refresh, spawn, flag-mode entry, quit.
func (m Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.vm.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.vm.moveCursor(1)
		return m, nil

	case "pgup":
		m.vm.moveCursor(-m.pageSize)
		return m, nil

	case "pgdown":
		m.vm.moveCursor(m.pageSize)
		return m, nil

	case "f":
		m.vm.cycleFilter()
		return m, nil

	case "s":
		m.vm.cycleSort()
		return m, nil

	case "r":
		return m.startRefresh()

	case "enter":
		return m.startSpawn()

	case "a":
		if !m.canEnterFlagMode() {
			m.setError("no active machine with an unsubmitted objective")
			return m, nil
		}
		m.enterFlagMode()
		return m, nil
	}
	return m, nil
}

// handleFlagKeys interprets keys while composing a flag. Only submit,
// cancel, and buffer edits are recognized; everything else goes to the
// text input so typed characters can never trigger browse commands.
func (m Model) handleFlagKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		// Terminal convention, not a browse command: always quits.
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.exitFlagMode()
		m.setStatus("flag entry cancelled")
		return m, nil

	case "enter":
		return m.startSubmitFlag()
	}

	var cmd tea.Cmd
	m.flagInput, cmd = m.flagInput.Update(msg)
	return m, cmd
}
