package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackline/labtui/internal/catalog"
)

// flagModeModel returns a model already composing a flag.
func flagModeModel(t *testing.T, svc *mockCatalog) Model {
	t.Helper()
	m := newTestModel(t, svc)
	m, _ = press(t, m, keyRune('a'))
	if m.mode != modeFlag {
		t.Fatal("precondition: model should be in flag mode")
	}
	return m
}

func TestFlagModeKeysNeverTriggerBrowseCommands(t *testing.T) {
	machines := testMachines()
	machines[0].Active = true
	svc := &mockCatalog{machines: machines}
	m := flagModeModel(t, svc)

	filterBefore := m.vm.filter
	sortBefore := m.vm.sort
	cursorBefore := m.vm.cursor

	// Every browse command key, typed as flag content.
	for _, r := range "fsrjkqa" {
		m, _ = press(t, m, keyRune(r))
	}

	if m.quitting {
		t.Fatal("'q' in flag mode must not quit")
	}
	if m.vm.filter != filterBefore {
		t.Error("'f' in flag mode must not cycle the filter")
	}
	if m.vm.sort != sortBefore {
		t.Error("'s' in flag mode must not cycle the sort")
	}
	if m.vm.cursor != cursorBefore {
		t.Error("'j'/'k' in flag mode must not move the cursor")
	}
	if m.refreshing || m.spawning {
		t.Error("no async action may be dispatched by flag-mode typing")
	}
	if got := m.flagInput.Value(); got != "fsrjkqa" {
		t.Errorf("buffer = %q, want all keys captured as text", got)
	}
}

func TestBrowseModeIgnoresFlagEditingKeys(t *testing.T) {
	svc := &mockCatalog{machines: testMachines()}
	m := newTestModel(t, svc)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.mode != modeBrowse {
		t.Error("mode should remain browse")
	}
	if m.flagInput.Value() != "" {
		t.Error("browse keys must not touch the flag buffer")
	}
}

func TestEscCancelsFlagEntryAndDiscardsBuffer(t *testing.T) {
	machines := testMachines()
	machines[0].Active = true
	svc := &mockCatalog{machines: machines}
	m := flagModeModel(t, svc)

	for _, r := range "partial" {
		m, _ = press(t, m, keyRune(r))
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.mode != modeBrowse {
		t.Error("esc should return to browse")
	}
	if m.flagInput.Value() != "" {
		t.Error("cancelled buffer must be discarded")
	}
	if svc.flagCalls != 0 {
		t.Error("cancel must not submit")
	}

	// Re-entering starts with a fresh buffer.
	m, _ = press(t, m, keyRune('a'))
	if m.mode != modeFlag || m.flagInput.Value() != "" {
		t.Error("re-entered flag mode should start empty")
	}
}

func TestBackspaceEditsBuffer(t *testing.T) {
	machines := testMachines()
	machines[0].Active = true
	m := flagModeModel(t, &mockCatalog{machines: machines})

	for _, r := range "abc" {
		m, _ = press(t, m, keyRune(r))
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if got := m.flagInput.Value(); got != "ab" {
		t.Errorf("buffer = %q after backspace, want \"ab\"", got)
	}

	// Backspace on an empty buffer is a no-op.
	for i := 0; i < 5; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	if got := m.flagInput.Value(); got != "" {
		t.Errorf("buffer = %q, want empty", got)
	}
}

func TestQuitFromBrowse(t *testing.T) {
	svc := &mockCatalog{machines: testMachines()}
	m := newTestModel(t, svc)

	m, cmd := press(t, m, keyRune('q'))
	if !m.quitting {
		t.Error("'q' in browse should quit")
	}
	if cmd == nil {
		t.Error("quit should produce the tea.Quit command")
	}
}

func TestCtrlCQuitsInBothModes(t *testing.T) {
	machines := testMachines()
	machines[0].Active = true

	browse := newTestModel(t, &mockCatalog{machines: machines})
	browse, _ = press(t, browse, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !browse.quitting {
		t.Error("ctrl+c should quit from browse")
	}

	flag := flagModeModel(t, &mockCatalog{machines: machines})
	flag, _ = press(t, flag, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !flag.quitting {
		t.Error("ctrl+c should quit from flag mode")
	}
}

func TestNavigationKeys(t *testing.T) {
	svc := &mockCatalog{machines: testMachines()}
	m := newTestModel(t, svc)

	m, _ = press(t, m, keyRune('j'))
	if sel, _ := m.vm.selected(); sel.Name != "Mimic" {
		t.Errorf("after j: selected %q, want Mimic", sel.Name)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if sel, _ := m.vm.selected(); sel.Name != "Zeta" {
		t.Errorf("after down: selected %q, want Zeta", sel.Name)
	}
	m, _ = press(t, m, keyRune('k'))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if sel, _ := m.vm.selected(); sel.Name != "Alpha" {
		t.Errorf("after k+up: selected %q, want Alpha", sel.Name)
	}
}

func TestFilterAndSortKeys(t *testing.T) {
	svc := &mockCatalog{machines: []catalog.Machine{
		{ID: 1, Name: "A", UserOwned: true},
		{ID: 2, Name: "B"},
	}}
	m := newTestModel(t, svc)

	m, _ = press(t, m, keyRune('f'))
	if m.vm.filter != filterUserNotOwned {
		t.Errorf("filter = %v, want UserNotOwned", m.vm.filter)
	}
	if got := len(m.vm.visible()); got != 1 {
		t.Errorf("visible = %d machines, want 1", got)
	}

	m, _ = press(t, m, keyRune('s'))
	if m.vm.sort != sortUserOwns {
		t.Errorf("sort = %v, want UserOwns", m.vm.sort)
	}
}
