// internal/room/room_test.go
package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
)

func newTestConn(username string) *conn.Connection {
	return conn.NewConnection(conn.Identity{Username: username, Role: conn.RoleGuest}, nil)
}

// drain empties a connection's outbound channel.
func drain(c *conn.Connection) []map[string]interface{} {
	var out []map[string]interface{}
	for {
		select {
		case m := <-c.OutChan:
			out = append(out, m)
		default:
			return out
		}
	}
}

// lastOfType returns the most recent message of the given type, or nil.
func lastOfType(msgs []map[string]interface{}, typ string) map[string]interface{} {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i]["type"] == typ {
			return msgs[i]
		}
	}
	return nil
}

func hasType(msgs []map[string]interface{}, typ string) bool {
	return lastOfType(msgs, typ) != nil
}

// setupMorrisRoom seats two players in a fresh three men's morris room and
// drains the join traffic.
func setupMorrisRoom(t *testing.T) (*Store, *Room, *conn.Connection, *conn.Connection) {
	t.Helper()
	store := NewStore(engine.DefaultRegistry())
	alice, bob := newTestConn("alice"), newTestConn("bob")

	r, err := store.Create("morris room", engine.GameThreeMensMorris, alice)
	require.NoError(t, err)
	_, err = r.AddPlayer(bob)
	require.NoError(t, err)

	drain(alice)
	drain(bob)
	return store, r, alice, bob
}

func dropAt(cell int) map[string]interface{} {
	return map[string]interface{}{"cell": cell}
}

func TestRoomSeatingAndStart(t *testing.T) {
	store := NewStore(engine.DefaultRegistry())
	alice, bob := newTestConn("alice"), newTestConn("bob")

	r, err := store.Create("morris room", engine.GameThreeMensMorris, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, r.Status)

	msgs := drain(alice)
	role := lastOfType(msgs, "playersRole")
	require.NotNil(t, role)
	assert.Equal(t, "X", role["role"])

	// Duplicate username is rejected.
	aliceAgain := newTestConn("alice")
	_, err = r.AddPlayer(aliceAgain)
	assert.True(t, errs.Is(err, errs.AlreadyExists))

	_, err = r.AddPlayer(bob)
	require.NoError(t, err)

	msgs = drain(bob)
	role = lastOfType(msgs, "playersRole")
	require.NotNil(t, role)
	assert.Equal(t, "O", role["role"])

	// Both players got the start and an initial state.
	assert.True(t, hasType(msgs, "startGame"))
	assert.True(t, hasType(msgs, "gameStateUpdate"))
	aliceMsgs := drain(alice)
	assert.True(t, hasType(aliceMsgs, "startGame"))
	assert.Equal(t, StatusInProgress, r.Status)

	// A third player cannot sit down.
	carol := newTestConn("carol")
	_, err = r.AddPlayer(carol)
	assert.True(t, errs.Is(err, errs.InvalidPhase))
}

func TestRoomPlayToWin(t *testing.T) {
	_, r, alice, bob := setupMorrisRoom(t)

	moves := []struct {
		c    *conn.Connection
		cell int
	}{
		{alice, 0}, {bob, 3}, {alice, 1}, {bob, 4}, {alice, 2},
	}
	for _, mv := range moves {
		require.NoError(t, r.Move(mv.c, dropAt(mv.cell)))
	}

	assert.Equal(t, StatusFinished, r.Status)
	assert.Equal(t, "alice", r.Winner)

	bobMsgs := drain(bob)
	fin := lastOfType(bobMsgs, "gameFinished")
	require.NotNil(t, fin)
	assert.Equal(t, "alice", fin["winner"])

	// The final state update carries the winner too.
	state := lastOfType(bobMsgs, "gameStateUpdate")
	require.NotNil(t, state)
	assert.Equal(t, "alice", state["winner"])
	assert.Equal(t, string(StatusFinished), state["gameStatus"])

	// Moves after the end are rejected.
	err := r.Move(bob, dropAt(5))
	assert.True(t, errs.Is(err, errs.InvalidPhase))
}

func TestRoomMoveRejections(t *testing.T) {
	_, r, alice, bob := setupMorrisRoom(t)

	// Out of turn: room state untouched, opponent hears nothing.
	err := r.Move(bob, dropAt(0))
	assert.True(t, errs.Is(err, errs.NotYourTurn))
	assert.Empty(t, drain(alice))

	// Spectators cannot move.
	watcher := newTestConn("watcher")
	r.AddSpectator(watcher)
	drain(watcher)
	err = r.Move(watcher, dropAt(0))
	assert.True(t, errs.Is(err, errs.NotEligible))

	// A legal move reaches players and spectators.
	require.NoError(t, r.Move(alice, dropAt(4)))
	assert.True(t, hasType(drain(bob), "gameStateUpdate"))
	assert.True(t, hasType(drain(watcher), "gameStateUpdate"))
}

func TestRoomForfeitOnLeave(t *testing.T) {
	_, r, alice, bob := setupMorrisRoom(t)

	r.Leave(bob)

	assert.Equal(t, StatusFinished, r.Status)
	assert.Equal(t, "alice", r.Winner)

	msgs := drain(alice)
	disc := lastOfType(msgs, "playerDisconnected")
	require.NotNil(t, disc)
	assert.Equal(t, "bob", disc["username"])
	fin := lastOfType(msgs, "gameFinished")
	require.NotNil(t, fin)
	assert.Equal(t, "alice", fin["winner"])
}

func TestRoomLastLeaverEmptiesRoom(t *testing.T) {
	store, r, alice, bob := setupMorrisRoom(t)

	// First leaver forfeits; winner already decided.
	r.Leave(alice)
	assert.Equal(t, "bob", r.Winner)

	// Last member leaving empties the room out of the store.
	r.Leave(bob)
	_, err := store.Get(r.ID)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestRoomWaitingLeaveFreesSeat(t *testing.T) {
	store := NewStore(engine.DefaultRegistry())
	alice := newTestConn("alice")

	r, err := store.Create("short lived", engine.GameMemoryMatch, alice)
	require.NoError(t, err)

	r.Leave(alice)
	_, err = store.Get(r.ID)
	assert.True(t, errs.Is(err, errs.NotFound), "empty waiting room is destroyed")
}

func TestRoomSpectatorView(t *testing.T) {
	store := NewStore(engine.DefaultRegistry())
	alice, bob := newTestConn("alice"), newTestConn("bob")

	r, err := store.CreateSeated("ships", engine.GameBattleship, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, StatusPlacement, r.Status)
	drain(alice)
	drain(bob)

	watcher := newTestConn("watcher")
	r.AddSpectator(watcher)
	msgs := drain(watcher)
	joined := lastOfType(msgs, "joinedAsSpectator")
	require.NotNil(t, joined)
	assert.ElementsMatch(t, []string{"alice", "bob"}, joined["players"])
	require.True(t, hasType(msgs, "gameStateUpdate"))

	// Alice places a ship; her own update shows it, the spectator's does not.
	require.NoError(t, r.Placement(alice, map[string]interface{}{
		"row": 0, "col": 0, "length": 5, "horizontal": true,
	}))
	aliceState := lastOfType(drain(alice), "gameStateUpdate")["state"].(map[string]interface{})
	watcherState := lastOfType(drain(watcher), "gameStateUpdate")["state"].(map[string]interface{})

	aliceGrids := aliceState["grids"].([]map[string]interface{})
	watcherGrids := watcherState["grids"].([]map[string]interface{})
	assert.Contains(t, aliceGrids[0], "ships")
	assert.NotContains(t, watcherGrids[0], "ships")
}

func TestRoomPlacementTransitions(t *testing.T) {
	store := NewStore(engine.DefaultRegistry())
	alice, bob := newTestConn("alice"), newTestConn("bob")

	r, err := store.CreateSeated("ships", engine.GameBattleship, alice, bob)
	require.NoError(t, err)
	drain(alice)
	drain(bob)

	// Moves are rejected while placing.
	err = r.Move(alice, map[string]interface{}{"row": 0, "col": 0})
	assert.True(t, errs.Is(err, errs.InvalidPhase))

	fleet := []int{5, 4, 3, 3, 2}
	for _, c := range []*conn.Connection{alice, bob} {
		for row, length := range fleet {
			require.NoError(t, r.Placement(c, map[string]interface{}{
				"row": row, "col": 0, "length": length, "horizontal": true,
			}))
		}
	}

	assert.Equal(t, StatusInProgress, r.Status)
	assert.True(t, hasType(drain(alice), "startGame"))

	// Placement actions are rejected once the game is live.
	err = r.Placement(alice, map[string]interface{}{
		"row": 9, "col": 0, "length": 2, "horizontal": true,
	})
	assert.True(t, errs.Is(err, errs.InvalidPhase))
}

func TestRoomChat(t *testing.T) {
	_, r, alice, bob := setupMorrisRoom(t)
	watcher := newTestConn("watcher")
	r.AddSpectator(watcher)
	drain(watcher)

	r.Chat(alice, "good luck")

	for _, c := range []*conn.Connection{alice, bob, watcher} {
		msg := lastOfType(drain(c), "chat")
		require.NotNil(t, msg)
		assert.Equal(t, "alice", msg["username"])
		assert.Equal(t, "good luck", msg["message"])
	}
}

func TestRoomOnFinishedHook(t *testing.T) {
	store := NewStore(engine.DefaultRegistry())
	var hookWinner, hookStatus string
	store.OnFinished = func(r *Room, winner string) {
		hookWinner = winner
		// The hook runs with the room lock released, so locking methods
		// on the room itself are fair game.
		hookStatus = r.Summarize().Status
	}

	alice, bob := newTestConn("alice"), newTestConn("bob")
	r, err := store.CreateSeated("hooked", engine.GameThreeMensMorris, alice, bob)
	require.NoError(t, err)

	r.Leave(bob)
	assert.Equal(t, "alice", hookWinner)
	assert.Equal(t, string(StatusFinished), hookStatus)
}

func TestRoomIDsAreNotReused(t *testing.T) {
	store := NewStore(engine.DefaultRegistry())
	alice := newTestConn("alice")

	r1, err := store.Create("one", engine.GameThreeMensMorris, alice)
	require.NoError(t, err)
	r1ID := r1.ID
	r1.Leave(alice)

	alice2 := newTestConn("alice")
	r2, err := store.Create("two", engine.GameThreeMensMorris, alice2)
	require.NoError(t, err)
	assert.NotEqual(t, r1ID, r2.ID)

	// The dead id resolves to NotFound, never to the new room.
	_, err = store.Get(r1ID)
	assert.True(t, errs.Is(err, errs.NotFound))
}
