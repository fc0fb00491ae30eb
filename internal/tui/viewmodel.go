package tui

import (
	"sort"

	"github.com/hackline/labtui/internal/catalog"
)

// filterMode selects which machines are visible.
type filterMode int

const (
	filterAll filterMode = iota
	filterUserNotOwned
	filterRootNotOwned
	filterNotOwned // Neither user nor root owned
	filterUserOwned
	filterRootOwned
	filterModeCount
)

// String returns the footer label for the filter.
func (f filterMode) String() string {
	switch f {
	case filterAll:
		return "All"
	case filterUserNotOwned:
		return "User not owned"
	case filterRootNotOwned:
		return "Root not owned"
	case filterNotOwned:
		return "Not owned"
	case filterUserOwned:
		return "User owned"
	case filterRootOwned:
		return "Root owned"
	default:
		return "All"
	}
}

// allows reports whether the machine passes the filter predicate.
func (f filterMode) allows(m catalog.Machine) bool {
	switch f {
	case filterUserNotOwned:
		return !m.UserOwned
	case filterRootNotOwned:
		return !m.RootOwned
	case filterNotOwned:
		return !m.UserOwned && !m.RootOwned
	case filterUserOwned:
		return m.UserOwned
	case filterRootOwned:
		return m.RootOwned
	default:
		return true
	}
}

// sortMode selects the total order applied to the visible list.
type sortMode int

const (
	sortDifficulty sortMode = iota // Ascending
	sortUserOwns                   // Descending by user own count
	sortRootOwns                   // Descending by root own count
	sortName                       // Ascending
	sortModeCount
)

// String returns the footer label for the sort.
func (s sortMode) String() string {
	switch s {
	case sortDifficulty:
		return "Difficulty"
	case sortUserOwns:
		return "User owns"
	case sortRootOwns:
		return "Root owns"
	case sortName:
		return "Name"
	default:
		return "Difficulty"
	}
}

// less is the total order for the mode. Every mode tie-breaks by name and
// then by ID so the visible order is deterministic for equal keys.
func (s sortMode) less(a, b catalog.Machine) bool {
	switch s {
	case sortUserOwns:
		if a.UserOwnsCount != b.UserOwnsCount {
			return a.UserOwnsCount > b.UserOwnsCount
		}
	case sortRootOwns:
		if a.RootOwnsCount != b.RootOwnsCount {
			return a.RootOwnsCount > b.RootOwnsCount
		}
	case sortName:
		// Name is the primary key; fall through to the shared tie-break.
	default: // sortDifficulty
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}

// viewModel reconciles the machine collection fetched from the service with
// the user-driven filter, sort, and selection state. All methods are
// synchronous and are only ever called from the bubbletea update goroutine,
// which serializes them against async completion application.
type viewModel struct {
	machines []catalog.Machine
	filter   filterMode
	sort     sortMode
	cursor   int // Index into visible(); meaningless when visible() is empty
}

// visible returns the filtered, ordered machine list. It is a pure
// derivation of the backing collection plus the two modes.
func (v *viewModel) visible() []catalog.Machine {
	out := make([]catalog.Machine, 0, len(v.machines))
	for _, m := range v.machines {
		if v.filter.allows(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return v.sort.less(out[i], out[j]) })
	return out
}

// selected returns the machine under the cursor, if any.
func (v *viewModel) selected() (catalog.Machine, bool) {
	vis := v.visible()
	if len(vis) == 0 || v.cursor < 0 || v.cursor >= len(vis) {
		return catalog.Machine{}, false
	}
	return vis[v.cursor], true
}

// activeMachine returns the single active machine, derived from the
// collection. It exists iff exactly one machine is active.
func (v *viewModel) activeMachine() (catalog.ActiveMachine, bool) {
	var found *catalog.Machine
	for i := range v.machines {
		if !v.machines[i].Active {
			continue
		}
		if found != nil {
			return catalog.ActiveMachine{}, false
		}
		found = &v.machines[i]
	}
	if found == nil {
		return catalog.ActiveMachine{}, false
	}
	return catalog.ActiveMachine{ID: found.ID, Name: found.Name, IP: found.IP}, true
}

// replaceMachines swaps in a fresh collection from a refresh. The previous
// collection is replaced, not merged, with two exceptions: the selection
// stays on the same machine ID when still visible, and a locally known
// active machine keeps its active flag (and address) when the fresh payload
// lags behind a recent spawn, but only while its ID is still listed. It
// returns the number of extra active flags cleared from the payload so the
// caller can report a service-side invariant violation.
func (v *viewModel) replaceMachines(machines []catalog.Machine) int {
	prevActive, hadActive := v.activeMachine()
	prevID, hadSelection := v.selectedID()

	v.machines = machines
	dropped := dedupeActive(v.machines)

	if hadActive && !v.anyActive() {
		for i := range v.machines {
			if v.machines[i].ID == prevActive.ID {
				v.machines[i].Active = true
				if v.machines[i].IP == "" {
					v.machines[i].IP = prevActive.IP
				}
				break
			}
		}
	}

	v.restoreSelection(prevID, hadSelection)
	return dropped
}

// setFilter changes the filter and re-clamps the selection, keeping the
// same machine selected when it remains visible.
func (v *viewModel) setFilter(f filterMode) {
	prevID, had := v.selectedID()
	v.filter = f
	v.restoreSelection(prevID, had)
}

// cycleFilter advances to the next filter mode.
func (v *viewModel) cycleFilter() {
	v.setFilter((v.filter + 1) % filterModeCount)
}

// setSort changes the sort and re-clamps the selection, keeping the same
// machine selected.
func (v *viewModel) setSort(s sortMode) {
	prevID, had := v.selectedID()
	v.sort = s
	v.restoreSelection(prevID, had)
}

// cycleSort advances to the next sort mode.
func (v *viewModel) cycleSort() {
	v.setSort((v.sort + 1) % sortModeCount)
}

// moveCursor moves the selection by delta within the visible list. No
// wraparound; a move on an empty list is a no-op.
func (v *viewModel) moveCursor(delta int) {
	n := len(v.visible())
	if n == 0 {
		return
	}
	v.cursor += delta
	if v.cursor < 0 {
		v.cursor = 0
	}
	if v.cursor >= n {
		v.cursor = n - 1
	}
}

// applySpawn marks the spawned machine active. When a concurrent refresh
// removed the machine from the collection, the refresh wins: the spawn
// result is dropped and false is returned.
func (v *viewModel) applySpawn(info catalog.ActiveMachine) bool {
	idx := -1
	for i := range v.machines {
		if v.machines[i].ID == info.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	for i := range v.machines {
		v.machines[i].Active = false
	}
	v.machines[idx].Active = true
	if info.IP != "" {
		v.machines[idx].IP = info.IP
	}
	return true
}

// applyFlag records an accepted flag on the machine. Owned flags are
// monotonic here; only a refresh can reflect a service-side reset.
func (v *viewModel) applyFlag(id int64, res catalog.FlagResult) {
	if res.Outcome != catalog.FlagAccepted {
		return
	}
	for i := range v.machines {
		if v.machines[i].ID != id {
			continue
		}
		switch res.OwnType {
		case "root":
			v.machines[i].RootOwned = true
		case "user":
			v.machines[i].UserOwned = true
		default:
			// Service did not say which objective; user comes first.
			if !v.machines[i].UserOwned {
				v.machines[i].UserOwned = true
			} else {
				v.machines[i].RootOwned = true
			}
		}
		return
	}
}

// selectedID returns the ID of the machine under the cursor.
func (v *viewModel) selectedID() (int64, bool) {
	m, ok := v.selected()
	if !ok {
		return 0, false
	}
	return m.ID, true
}

// restoreSelection points the cursor at prevID when it is still visible,
// otherwise clamps the cursor into the new visible range.
func (v *viewModel) restoreSelection(prevID int64, had bool) {
	vis := v.visible()
	if len(vis) == 0 {
		v.cursor = 0
		return
	}
	if had {
		for i, m := range vis {
			if m.ID == prevID {
				v.cursor = i
				return
			}
		}
	}
	if v.cursor >= len(vis) {
		v.cursor = len(vis) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

// anyActive reports whether any machine in the collection is active.
func (v *viewModel) anyActive() bool {
	for i := range v.machines {
		if v.machines[i].Active {
			return true
		}
	}
	return false
}

// dedupeActive enforces the at-most-one-active invariant on a fresh
// payload: the first active machine wins, later flags are cleared. Returns
// the number of flags cleared.
func dedupeActive(machines []catalog.Machine) int {
	seen := false
	dropped := 0
	for i := range machines {
		if !machines[i].Active {
			continue
		}
		if seen {
			machines[i].Active = false
			dropped++
			continue
		}
		seen = true
	}
	return dropped
}
