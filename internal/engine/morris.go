// internal/engine/morris.go
package engine

import (
	"github.com/nrujac/gamehub/internal/errs"
)

// morrisLines are the winning triples on the 3x3 point grid.
var morrisLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// morrisAdjacent maps each point to the points a piece may slide to.
var morrisAdjacent = [9][]int{
	0: {1, 3, 4},
	1: {0, 2, 4},
	2: {1, 4, 5},
	3: {0, 4, 6},
	4: {0, 1, 2, 3, 5, 6, 7, 8},
	5: {2, 4, 8},
	6: {3, 4, 7},
	7: {4, 6, 8},
	8: {4, 5, 7},
}

// Morris implements three men's morris. Each seat drops three pieces onto the
// grid (payload {"cell": n}), then slides them to adjacent empty points
// (payload {"from": a, "to": b}) until someone lines up three.
type Morris struct {
	board  [9]int // -1 empty, else owning seat
	placed [2]int
	turn   int
	over   bool
}

func NewMorris() *Morris {
	m := &Morris{}
	for i := range m.board {
		m.board[i] = -1
	}
	return m
}

func (m *Morris) Type() GameType      { return GameThreeMensMorris }
func (m *Morris) InitialPhase() Phase { return PhaseInProgress }
func (m *Morris) Turn() int           { return m.turn }

func (m *Morris) ApplyMove(seat int, payload map[string]interface{}) (*Result, error) {
	if m.over {
		return nil, errs.New(errs.InvalidPhase, "game is already over")
	}
	if seat != m.turn {
		return nil, errs.New(errs.NotYourTurn, "it is not your turn")
	}

	dropping := m.placed[seat] < 3
	if dropping {
		cell, ok := intField(payload, "cell")
		if !ok || cell < 0 || cell > 8 {
			return nil, errs.New(errs.NotEligible, "drop move requires a cell in 0..8")
		}
		if m.board[cell] != -1 {
			return nil, errs.New(errs.NotEligible, "cell %d is occupied", cell)
		}
		m.board[cell] = seat
		m.placed[seat]++
	} else {
		from, okFrom := intField(payload, "from")
		to, okTo := intField(payload, "to")
		if !okFrom || !okTo || from < 0 || from > 8 || to < 0 || to > 8 {
			return nil, errs.New(errs.NotEligible, "slide move requires from and to in 0..8")
		}
		if m.board[from] != seat {
			return nil, errs.New(errs.NotEligible, "no piece of yours on point %d", from)
		}
		if m.board[to] != -1 {
			return nil, errs.New(errs.NotEligible, "point %d is occupied", to)
		}
		adjacent := false
		for _, n := range morrisAdjacent[from] {
			if n == to {
				adjacent = true
				break
			}
		}
		if !adjacent {
			return nil, errs.New(errs.NotEligible, "point %d is not adjacent to %d", to, from)
		}
		m.board[from] = -1
		m.board[to] = seat
	}

	if m.hasMill(seat) {
		m.over = true
		return &Result{Winner: seat}, nil
	}
	m.turn = 1 - m.turn
	return nil, nil
}

func (m *Morris) ApplyPlacement(seat int, payload map[string]interface{}) (bool, error) {
	return false, errs.New(errs.InvalidPhase, "three men's morris has no placement phase")
}

func (m *Morris) Forfeit(vacatingSeat int) Result {
	m.over = true
	return Result{Winner: 1 - vacatingSeat}
}

func (m *Morris) hasMill(seat int) bool {
	for _, line := range morrisLines {
		if m.board[line[0]] == seat && m.board[line[1]] == seat && m.board[line[2]] == seat {
			return true
		}
	}
	return false
}

func (m *Morris) StateFor(viewer int) map[string]interface{} {
	board := make([]int, 9)
	copy(board, m.board[:])
	return map[string]interface{}{
		"board":  board,
		"placed": []int{m.placed[0], m.placed[1]},
		"turn":   m.turn,
	}
}
