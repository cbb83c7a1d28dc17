// internal/room/rematch_test.go
package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/errs"
)

// playMorrisWin plays alice to a top-row win so the room finishes with both
// connections still seated.
func playMorrisWin(t *testing.T, r *Room, alice, bob *conn.Connection) {
	t.Helper()
	moves := []struct {
		c    *conn.Connection
		cell int
	}{
		{alice, 0}, {bob, 3}, {alice, 1}, {bob, 4}, {alice, 2},
	}
	for _, mv := range moves {
		require.NoError(t, r.Move(mv.c, dropAt(mv.cell)))
	}
	require.Equal(t, StatusFinished, r.Status)
}

func TestRematchFlow(t *testing.T) {
	store, r, alice, bob := setupMorrisRoom(t)
	rc := NewRematchCoordinator(store)

	// Rematch requests are only valid on finished rooms.
	_, err := rc.Request(r, alice)
	assert.True(t, errs.Is(err, errs.NotEligible))

	playMorrisWin(t, r, alice, bob)
	drain(alice)
	drain(bob)

	// First request goes pending and notifies the opponent.
	successor, err := rc.Request(r, alice)
	require.NoError(t, err)
	assert.Nil(t, successor)
	holder, ok := rc.Pending(r.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", holder)

	req := lastOfType(drain(bob), "rematchRequested")
	require.NotNil(t, req)
	assert.Equal(t, "alice", req["username"])

	// A duplicate from the same player is rejected.
	_, err = rc.Request(r, alice)
	assert.True(t, errs.Is(err, errs.AlreadyExists))

	// The counterpart's request resolves into a successor room.
	successor, err = rc.Request(r, bob)
	require.NoError(t, err)
	require.NotNil(t, successor)
	assert.NotEqual(t, r.ID, successor.ID)

	// Seat roles swap: the second requester takes the first seat.
	assert.Equal(t, []string{"bob", "alice"}, successor.SeatNames())
	assert.Equal(t, StatusInProgress, successor.Status)

	for _, msgs := range [][]map[string]interface{}{drain(alice), drain(bob)} {
		acc := lastOfType(msgs, "rematchAccepted")
		require.NotNil(t, acc)
		assert.Equal(t, successor.ID, acc["roomId"])
		assert.Equal(t, r.ID, acc["prevRoomId"])
		assert.True(t, hasType(msgs, "restartGame"))
	}

	// The pending entry is gone.
	_, ok = rc.Pending(r.ID)
	assert.False(t, ok)
}

func TestRematchSpectatorCannotRequest(t *testing.T) {
	store, r, alice, bob := setupMorrisRoom(t)
	rc := NewRematchCoordinator(store)
	playMorrisWin(t, r, alice, bob)

	watcher := newTestConn("watcher")
	r.AddSpectator(watcher)

	_, err := rc.Request(r, watcher)
	assert.True(t, errs.Is(err, errs.NotEligible))
}

func TestRematchClearOnLeave(t *testing.T) {
	store, r, alice, bob := setupMorrisRoom(t)
	rc := NewRematchCoordinator(store)
	playMorrisWin(t, r, alice, bob)

	_, err := rc.Request(r, alice)
	require.NoError(t, err)

	// The opponent walks away; the caller clears the pending agreement.
	r.Leave(bob)
	rc.Clear(r.ID)
	_, ok := rc.Pending(r.ID)
	assert.False(t, ok)

	// bob's seat is vacated now, so a renewed request just goes pending
	// again with nobody left to accept it.
	successor, err := rc.Request(r, alice)
	require.NoError(t, err)
	assert.Nil(t, successor)
}
