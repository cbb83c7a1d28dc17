// internal/tournament/tournament_test.go
package tournament

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
)

// setupFour builds a started 4-player bracket seeded a,b,c,d.
func setupFour(t *testing.T) *Tournament {
	t.Helper()
	store := NewStore()
	tr, err := store.Create("cup", engine.GameThreeMensMorris, 4, "a")
	require.NoError(t, err)
	for _, p := range []string{"b", "c", "d"} {
		require.NoError(t, tr.Join(p))
	}
	require.NoError(t, tr.Start("a"))
	return tr
}

func TestStoreCreateValidatesCapacity(t *testing.T) {
	store := NewStore()

	for _, bad := range []int{0, 1, 3, 6, 100} {
		_, err := store.Create("cup", engine.GameMemoryMatch, bad, "a")
		assert.True(t, errs.Is(err, errs.NotEligible), "maxPlayers=%d", bad)
	}

	tr, err := store.Create("cup", engine.GameMemoryMatch, 8, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tr.Participants(), "creator is auto-registered")
}

func TestJoinLeaveRules(t *testing.T) {
	store := NewStore()
	tr, err := store.Create("cup", engine.GameMemoryMatch, 2, "a")
	require.NoError(t, err)

	assert.True(t, errs.Is(tr.Join("a"), errs.AlreadyExists))
	require.NoError(t, tr.Join("b"))
	assert.True(t, errs.Is(tr.Join("c"), errs.Full))

	assert.True(t, errs.Is(tr.Leave("nobody"), errs.NotFound))
	require.NoError(t, tr.Leave("b"))

	require.NoError(t, tr.Join("b"))
	require.NoError(t, tr.Start("a"))

	// No joining or leaving once underway.
	assert.True(t, errs.Is(tr.Join("c"), errs.InvalidPhase))
	assert.True(t, errs.Is(tr.Leave("b"), errs.InvalidPhase))
}

func TestStartRules(t *testing.T) {
	store := NewStore()
	tr, err := store.Create("cup", engine.GameMemoryMatch, 4, "a")
	require.NoError(t, err)
	require.NoError(t, tr.Join("b"))
	require.NoError(t, tr.Join("c"))

	// Only the creator may start.
	assert.True(t, errs.Is(tr.Start("b"), errs.NotEligible))

	// 3 of 4 is not enough: capacity must be reached.
	assert.True(t, errs.Is(tr.Start("a"), errs.Full))

	require.NoError(t, tr.Join("d"))
	require.NoError(t, tr.Start("a"))
	assert.True(t, errs.Is(tr.Start("a"), errs.InvalidPhase))
}

func TestBracketSeedingAndAdvance(t *testing.T) {
	tr := setupFour(t)

	require.Len(t, tr.Rounds, 2)
	round, idxs := tr.Playable()
	assert.Equal(t, 1, round)
	assert.Equal(t, []int{0, 1}, idxs)

	m0, _ := tr.MatchAt(1, 0)
	m1, _ := tr.MatchAt(1, 1)
	assert.Equal(t, Match{Player1: "a", Player2: "b"}, m0)
	assert.Equal(t, Match{Player1: "c", Player2: "d"}, m1)

	// a beats b: winner feeds player1 of the final (even index).
	applied, roundDone := tr.RecordResult(1, 0, "a")
	assert.True(t, applied)
	assert.False(t, roundDone)

	// c beats d: round 1 done, final is a vs c.
	applied, roundDone = tr.RecordResult(1, 1, "c")
	assert.True(t, applied)
	assert.True(t, roundDone)

	final, _ := tr.MatchAt(2, 0)
	assert.Equal(t, "a", final.Player1)
	assert.Equal(t, "c", final.Player2)

	round, idxs = tr.Playable()
	assert.Equal(t, 2, round)
	assert.Equal(t, []int{0}, idxs)

	applied, roundDone = tr.RecordResult(2, 0, "a")
	assert.True(t, applied)
	assert.True(t, roundDone)

	sum := tr.Summarize()
	assert.Equal(t, string(StatusFinished), sum.Status)
	assert.Equal(t, "a", sum.Winner)
}

func TestRecordResultIsIdempotent(t *testing.T) {
	tr := setupFour(t)

	applied, _ := tr.RecordResult(1, 0, "a")
	require.True(t, applied)

	// A duplicate terminal signal for the same match is a no-op, even with a
	// different winner.
	applied, _ = tr.RecordResult(1, 0, "b")
	assert.False(t, applied)
	m, _ := tr.MatchAt(1, 0)
	assert.Equal(t, "a", m.Winner)

	// Results for a stale round are ignored too.
	applied, _ = tr.RecordResult(2, 0, "a")
	assert.False(t, applied)
}

func TestPlayableSkipsMaterializedMatches(t *testing.T) {
	tr := setupFour(t)

	tr.SetRoom(1, 0, "room-1")
	round, idxs := tr.Playable()
	assert.Equal(t, 1, round)
	assert.Equal(t, []int{1}, idxs)

	// Room links survive into RoomIDs.
	assert.Equal(t, []string{"room-1"}, tr.RoomIDs())
}

func TestBracketSnapshotIsACopy(t *testing.T) {
	tr := setupFour(t)

	b := tr.Bracket()
	b[0][0].Winner = "tampered"

	m, _ := tr.MatchAt(1, 0)
	assert.Empty(t, m.Winner)
}
