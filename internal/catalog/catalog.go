// Package catalog implements the client for the remote machine catalog
// service: listing machines, spawning one, and submitting flags.
package catalog

import (
	"context"
	"encoding/json"
	"strings"
)

// Difficulty is an ordered machine difficulty rating.
type Difficulty int

const (
	DifficultyUnknown Difficulty = iota
	DifficultyEasy
	DifficultyMedium
	DifficultyHard
	DifficultyInsane
)

// String returns the display name for the difficulty.
func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "Easy"
	case DifficultyMedium:
		return "Medium"
	case DifficultyHard:
		return "Hard"
	case DifficultyInsane:
		return "Insane"
	default:
		return "Unknown"
	}
}

// ParseDifficulty maps the service's difficulty label to a Difficulty.
// Unrecognized labels map to DifficultyUnknown rather than an error; the
// service occasionally introduces new labels and the list should still render.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	case "insane":
		return DifficultyInsane
	default:
		return DifficultyUnknown
	}
}

// Machine is one catalog entry.
type Machine struct {
	ID            int64
	Name          string
	OS            string
	Points        int
	Difficulty    Difficulty
	Release       string
	UserOwned     bool
	RootOwned     bool
	UserOwnsCount int64
	RootOwnsCount int64
	Active        bool
	IP            string // Empty unless the machine is active and an address is known
}

// ActiveMachine describes the single machine currently running on the service.
type ActiveMachine struct {
	ID   int64
	Name string
	IP   string
}

// FlagOutcome classifies the service's verdict on a submitted flag.
type FlagOutcome int

const (
	FlagAccepted FlagOutcome = iota
	FlagIncorrect
	FlagAlreadyOwned
)

// String returns the display name for the outcome.
func (o FlagOutcome) String() string {
	switch o {
	case FlagAccepted:
		return "accepted"
	case FlagIncorrect:
		return "incorrect"
	case FlagAlreadyOwned:
		return "already owned"
	default:
		return "unknown"
	}
}

// FlagResult is the service's response to a flag submission.
type FlagResult struct {
	Outcome FlagOutcome
	OwnType string // "user" or "root" when the flag was accepted
	Message string // Service-provided text, shown verbatim in the status line
}

// Service is the catalog operation set consumed by the TUI and the
// non-interactive commands. *Client implements it.
type Service interface {
	ListMachines(ctx context.Context) ([]Machine, error)
	Spawn(ctx context.Context, id int64) (*ActiveMachine, error)
	SubmitFlag(ctx context.Context, id int64, flag string) (*FlagResult, error)
}

// Wire types. The service encodes the active flag loosely (bool on some
// endpoints, 0/1 on others), so it is decoded from a raw value.

type machineJSON struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	OS             string          `json:"os"`
	Points         int             `json:"points"`
	DifficultyText string          `json:"difficultyText"`
	Release        string          `json:"release"`
	UserOwnsCount  int64           `json:"user_owns_count"`
	RootOwnsCount  int64           `json:"root_owns_count"`
	AuthUserInUser bool            `json:"authUserInUserOwns"`
	AuthUserInRoot bool            `json:"authUserInRootOwns"`
	Active         json.RawMessage `json:"active"`
	IP             string          `json:"ip"`
}

// isActive decodes the loose active encoding: true, 1, anything else false.
func (m machineJSON) isActive() bool {
	var b bool
	if err := json.Unmarshal(m.Active, &b); err == nil {
		return b
	}
	var n int
	if err := json.Unmarshal(m.Active, &n); err == nil {
		return n == 1
	}
	return false
}

func (m machineJSON) toMachine() Machine {
	return Machine{
		ID:            m.ID,
		Name:          m.Name,
		OS:            m.OS,
		Points:        m.Points,
		Difficulty:    ParseDifficulty(m.DifficultyText),
		Release:       m.Release,
		UserOwned:     m.AuthUserInUser,
		RootOwned:     m.AuthUserInRoot,
		UserOwnsCount: m.UserOwnsCount,
		RootOwnsCount: m.RootOwnsCount,
		Active:        m.isActive(),
		IP:            m.IP,
	}
}

type pageLinks struct {
	Next string `json:"next"`
}

type listResponse struct {
	Data  []machineJSON `json:"data"`
	Links pageLinks     `json:"links"`
}

type profileResponse struct {
	Info struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		IP   string `json:"ip"`
	} `json:"info"`
}

type spawnResponse struct {
	Message string `json:"message"`
	IP      string `json:"ip"`
}

type ownResponse struct {
	Message string `json:"message"`
	OwnType string `json:"own_type"`
}
