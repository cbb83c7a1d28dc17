// internal/engine/battleship.go
package engine

import (
	"github.com/nrujac/gamehub/internal/errs"
)

const battleshipGridSize = 10

// battleshipFleet lists the ship lengths each seat must place.
var battleshipFleet = []int{5, 4, 3, 3, 2}

type ship struct {
	cells []int
	hits  int
}

func (s *ship) sunk() bool { return s.hits == len(s.cells) }

type battleshipSide struct {
	ships     []*ship
	occupied  map[int]*ship // cell -> ship occupying it
	remaining []int         // fleet lengths not yet placed
	shots     map[int]bool  // cell -> hit, shots received from the opponent
	sunkCount int
}

func newBattleshipSide() *battleshipSide {
	remaining := make([]int, len(battleshipFleet))
	copy(remaining, battleshipFleet)
	return &battleshipSide{
		occupied:  make(map[int]*ship),
		remaining: remaining,
		shots:     make(map[int]bool),
	}
}

// Battleship implements the classic two-phase game: each seat places a fleet
// on its own 10x10 grid (payload {"row","col","length","horizontal"}), then
// seats trade shots (payload {"row","col"}). A hit keeps the turn; sinking
// the whole enemy fleet wins.
type Battleship struct {
	sides [2]*battleshipSide
	turn  int
	over  bool
}

func NewBattleship() *Battleship {
	return &Battleship{
		sides: [2]*battleshipSide{newBattleshipSide(), newBattleshipSide()},
	}
}

func (b *Battleship) Type() GameType      { return GameBattleship }
func (b *Battleship) InitialPhase() Phase { return PhasePlacement }
func (b *Battleship) Turn() int           { return b.turn }

func (b *Battleship) placementDone() bool {
	return len(b.sides[0].remaining) == 0 && len(b.sides[1].remaining) == 0
}

func (b *Battleship) ApplyPlacement(seat int, payload map[string]interface{}) (bool, error) {
	if b.placementDone() {
		return true, errs.New(errs.InvalidPhase, "placement phase is already complete")
	}
	side := b.sides[seat]
	if len(side.remaining) == 0 {
		return false, errs.New(errs.InvalidPhase, "your fleet is fully placed; waiting for opponent")
	}

	row, okRow := intField(payload, "row")
	col, okCol := intField(payload, "col")
	length, okLen := intField(payload, "length")
	horizontal, okDir := boolField(payload, "horizontal")
	if !okRow || !okCol || !okLen || !okDir {
		return false, errs.New(errs.NotEligible, "placement requires row, col, length and horizontal")
	}

	// The requested length must still be owed by this seat's fleet.
	lenIdx := -1
	for i, l := range side.remaining {
		if l == length {
			lenIdx = i
			break
		}
	}
	if lenIdx == -1 {
		return false, errs.New(errs.NotEligible, "no ship of length %d left to place", length)
	}

	cells := make([]int, 0, length)
	for i := 0; i < length; i++ {
		r, c := row, col
		if horizontal {
			c += i
		} else {
			r += i
		}
		if r < 0 || r >= battleshipGridSize || c < 0 || c >= battleshipGridSize {
			return false, errs.New(errs.NotEligible, "ship does not fit on the grid")
		}
		cell := r*battleshipGridSize + c
		if _, taken := side.occupied[cell]; taken {
			return false, errs.New(errs.NotEligible, "ship overlaps another ship")
		}
		cells = append(cells, cell)
	}

	sh := &ship{cells: cells}
	side.ships = append(side.ships, sh)
	for _, cell := range cells {
		side.occupied[cell] = sh
	}
	side.remaining = append(side.remaining[:lenIdx], side.remaining[lenIdx+1:]...)

	return b.placementDone(), nil
}

func (b *Battleship) ApplyMove(seat int, payload map[string]interface{}) (*Result, error) {
	if b.over {
		return nil, errs.New(errs.InvalidPhase, "game is already over")
	}
	if !b.placementDone() {
		return nil, errs.New(errs.InvalidPhase, "ships are still being placed")
	}
	if seat != b.turn {
		return nil, errs.New(errs.NotYourTurn, "it is not your turn")
	}
	row, okRow := intField(payload, "row")
	col, okCol := intField(payload, "col")
	if !okRow || !okCol || row < 0 || row >= battleshipGridSize || col < 0 || col >= battleshipGridSize {
		return nil, errs.New(errs.NotEligible, "shot requires row and col on the grid")
	}

	target := b.sides[1-seat]
	cell := row*battleshipGridSize + col
	if _, fired := target.shots[cell]; fired {
		return nil, errs.New(errs.NotEligible, "you already fired at that cell")
	}

	sh, hit := target.occupied[cell]
	target.shots[cell] = hit
	if hit {
		sh.hits++
		if sh.sunk() {
			target.sunkCount++
			if target.sunkCount == len(battleshipFleet) {
				b.over = true
				return &Result{Winner: seat}, nil
			}
		}
		// A hit grants another shot.
		return nil, nil
	}
	b.turn = 1 - b.turn
	return nil, nil
}

func (b *Battleship) Forfeit(vacatingSeat int) Result {
	b.over = true
	return Result{Winner: 1 - vacatingSeat}
}

// StateFor shows the viewer their own fleet in full, but only the shot record
// on the opponent's grid. Spectators (viewer -1) see both grids shots-only.
func (b *Battleship) StateFor(viewer int) map[string]interface{} {
	grids := make([]map[string]interface{}, 2)
	for seat, side := range b.sides {
		g := map[string]interface{}{
			"shots":   shotList(side.shots),
			"sunk":    side.sunkCount,
			"toPlace": len(side.remaining),
		}
		if seat == viewer {
			shipCells := []int{}
			for _, sh := range side.ships {
				shipCells = append(shipCells, sh.cells...)
			}
			g["ships"] = shipCells
		}
		grids[seat] = g
	}
	return map[string]interface{}{
		"grids": grids,
		"turn":  b.turn,
	}
}

func shotList(shots map[int]bool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(shots))
	for cell, hit := range shots {
		out = append(out, map[string]interface{}{
			"row": cell / battleshipGridSize,
			"col": cell % battleshipGridSize,
			"hit": hit,
		})
	}
	return out
}
