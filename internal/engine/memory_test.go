// internal/engine/memory_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrujac/gamehub/internal/errs"
)

func flip(card int) map[string]interface{} {
	return map[string]interface{}{"card": card}
}

// pairsOf maps each face value to the two card indexes holding it.
func pairsOf(m *Memory) map[int][2]int {
	out := make(map[int][2]int)
	seen := make(map[int]int)
	for i, v := range m.values {
		if first, ok := seen[v]; ok {
			out[v] = [2]int{first, i}
		} else {
			seen[v] = i
		}
	}
	return out
}

func TestMemoryMatchKeepsTurn(t *testing.T) {
	m := NewMemoryWithSeed(42)
	pairs := pairsOf(m)

	var pair [2]int
	for _, p := range pairs {
		pair = p
		break
	}

	res, err := m.ApplyMove(0, flip(pair[0]))
	require.NoError(t, err)
	require.Nil(t, res)

	res, err = m.ApplyMove(0, flip(pair[1]))
	require.NoError(t, err)
	require.Nil(t, res)

	assert.Equal(t, 0, m.Turn(), "a match keeps the turn")
	assert.Equal(t, 1, m.scores[0])
}

func TestMemoryMismatchPassesTurn(t *testing.T) {
	m := NewMemoryWithSeed(42)

	// Find two cards with different values.
	second := -1
	for i := 1; i < len(m.values); i++ {
		if m.values[i] != m.values[0] {
			second = i
			break
		}
	}
	require.NotEqual(t, -1, second)

	_, err := m.ApplyMove(0, flip(0))
	require.NoError(t, err)
	_, err = m.ApplyMove(0, flip(second))
	require.NoError(t, err)

	assert.Equal(t, 1, m.Turn(), "a mismatch passes the turn")

	// Both mismatched cards stay visible until the next flip.
	state := m.StateFor(-1)
	cards := state["cards"].([]map[string]interface{})
	assert.Contains(t, cards[0], "value")
	assert.Contains(t, cards[second], "value")

	// The next flip puts them face down again.
	third := -1
	for i := 1; i < len(m.values); i++ {
		if i != second {
			third = i
			break
		}
	}
	_, err = m.ApplyMove(1, flip(third))
	require.NoError(t, err)
	cards = m.StateFor(-1)["cards"].([]map[string]interface{})
	assert.NotContains(t, cards[0], "value")
}

func TestMemoryRejectsBadFlips(t *testing.T) {
	m := NewMemoryWithSeed(7)

	_, err := m.ApplyMove(1, flip(0))
	assert.True(t, errs.Is(err, errs.NotYourTurn))

	_, err = m.ApplyMove(0, flip(99))
	assert.True(t, errs.Is(err, errs.NotEligible))

	_, err = m.ApplyMove(0, flip(3))
	require.NoError(t, err)

	// The first pick cannot be flipped again as the second.
	_, err = m.ApplyMove(0, flip(3))
	assert.True(t, errs.Is(err, errs.NotEligible))
}

// TestMemorySweepWins has seat 0 clear the whole table; matches keep the turn
// so the opponent never gets to act.
func TestMemorySweepWins(t *testing.T) {
	m := NewMemoryWithSeed(1)
	pairs := pairsOf(m)
	require.Len(t, pairs, memoryPairs)

	var res *Result
	var err error
	for _, pair := range pairs {
		res, err = m.ApplyMove(0, flip(pair[0]))
		require.NoError(t, err)
		res, err = m.ApplyMove(0, flip(pair[1]))
		require.NoError(t, err)
	}

	require.NotNil(t, res)
	assert.Equal(t, 0, res.Winner)
	assert.False(t, res.Draw)
	assert.Equal(t, memoryPairs, m.scores[0])

	state := m.StateFor(-1)
	for _, c := range state["cards"].([]map[string]interface{}) {
		assert.Equal(t, true, c["matched"])
	}

	_, err = m.ApplyMove(1, flip(0))
	assert.True(t, errs.Is(err, errs.InvalidPhase))
}

func TestMemoryStateHidesFaceDownCards(t *testing.T) {
	m := NewMemoryWithSeed(9)

	state := m.StateFor(0)
	for _, c := range state["cards"].([]map[string]interface{}) {
		assert.NotContains(t, c, "value")
		assert.Equal(t, false, c["matched"])
	}

	// A flipped card is visible to everyone.
	_, err := m.ApplyMove(0, flip(5))
	require.NoError(t, err)
	for _, viewer := range []int{0, 1, -1} {
		cards := m.StateFor(viewer)["cards"].([]map[string]interface{})
		assert.Contains(t, cards[5], "value")
	}
}
