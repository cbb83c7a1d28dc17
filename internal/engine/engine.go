// internal/engine/engine.go
package engine

import (
	"github.com/nrujac/gamehub/internal/errs"
)

// GameType tags a room with the rule set it plays.
type GameType string

const (
	GameThreeMensMorris GameType = "three_mens_morris"
	GameMemoryMatch     GameType = "memory_match"
	GameBattleship      GameType = "battleship"
)

// Phase is the room phase an engine starts in, and drives the room's
// waiting -> placement|in_progress transition when the second seat fills.
type Phase string

const (
	PhasePlacement  Phase = "placement"
	PhaseInProgress Phase = "in_progress"
)

// Result is a terminal game outcome. Winner is a seat index; Draw overrides it.
type Result struct {
	Winner int  `json:"winner"`
	Draw   bool `json:"draw"`
}

// Engine is the per-room rule adapter. An instance owns the game-state blob
// for exactly one room and is only ever called under that room's lock, so
// implementations need no locking of their own.
//
// Seats are 0 and 1. Moves and placement actions reject with typed errs
// (NotYourTurn, InvalidPhase, NotEligible) and must leave state untouched on
// rejection.
type Engine interface {
	Type() GameType

	// InitialPhase declares whether this game has a pre-play placement phase.
	InitialPhase() Phase

	// ApplyMove applies one in-progress move for the acting seat. A non-nil
	// Result reports the game is over.
	ApplyMove(seat int, payload map[string]interface{}) (*Result, error)

	// ApplyPlacement applies one placement action for the acting seat and
	// reports whether the placement phase is complete for both seats.
	ApplyPlacement(seat int, payload map[string]interface{}) (bool, error)

	// Forfeit resolves the game in favor of the remaining seat when the
	// vacating seat abandons it.
	Forfeit(vacatingSeat int) Result

	// Turn returns the seat index expected to act next.
	Turn() int

	// StateFor renders the state blob as seen by the given viewer seat.
	// Spectators pass -1 and get the public view (hidden information stays
	// hidden).
	StateFor(viewer int) map[string]interface{}
}

// Factory builds a fresh engine instance for a new room.
type Factory func() Engine

// Registry maps game types to engine factories. It is populated once at
// construction time; a missing game type at room creation is a client error,
// a missing factory at server wiring is a configuration bug.
type Registry struct {
	factories map[GameType]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[GameType]Factory)}
}

// Register installs a factory for a game type, replacing any previous one.
func (r *Registry) Register(t GameType, f Factory) {
	r.factories[t] = f
}

// New instantiates an engine for the given game type.
func (r *Registry) New(t GameType) (Engine, error) {
	f, ok := r.factories[t]
	if !ok {
		return nil, errs.New(errs.NotFound, "unknown game type %q", t)
	}
	return f(), nil
}

// Types lists the registered game types.
func (r *Registry) Types() []GameType {
	out := make([]GameType, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	return out
}

// DefaultRegistry wires the three built-in engines.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(GameThreeMensMorris, func() Engine { return NewMorris() })
	r.Register(GameMemoryMatch, func() Engine { return NewMemory() })
	r.Register(GameBattleship, func() Engine { return NewBattleship() })
	return r
}
