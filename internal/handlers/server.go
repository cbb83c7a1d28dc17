// internal/handlers/server.go
package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nrujac/gamehub/internal/cache"
	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/database"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/invite"
	"github.com/nrujac/gamehub/internal/room"
	"github.com/nrujac/gamehub/internal/tournament"
)

// LobbyServer is the high-level struct tying the in-memory stores and
// coordinators together. One instance serves every socket.
type LobbyServer struct {
	Conns       *conn.Registry
	Engines     *engine.Registry
	Rooms       *room.Store
	Rematch     *room.RematchCoordinator
	Invites     *invite.Coordinator
	Tournaments *tournament.Manager
	Logger      *logrus.Logger
}

func NewLobbyServer(logger *logrus.Logger) *LobbyServer {
	engines := engine.DefaultRegistry()
	conns := conn.NewRegistry()
	rooms := room.NewStore(engines)

	s := &LobbyServer{
		Conns:       conns,
		Engines:     engines,
		Rooms:       rooms,
		Rematch:     room.NewRematchCoordinator(rooms),
		Invites:     invite.NewCoordinator(rooms, conns),
		Tournaments: tournament.NewManager(tournament.NewStore(), rooms, conns, engines),
		Logger:      logger,
	}
	rooms.OnFinished = s.roomFinished
	return s
}

// roomFinished runs once a room settles, after its lock is released; it
// snapshots and hands off, with the slow persistence calls on their own
// goroutines.
func (s *LobbyServer) roomFinished(r *room.Room, winner string) {
	players := r.SeatNames()
	roomID, gameType := r.ID, string(r.GameType)

	if database.Enabled() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.RecordRoomResult(ctx, roomID, gameType, winner, players); err != nil {
				s.Logger.Warnf("failed to record result for room %s: %v", roomID, err)
			}
		}()
	}
	if cache.Enabled() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := cache.PublishRoomEvent(ctx, cache.RoomEventRecord{
				RoomID:    roomID,
				GameType:  gameType,
				EventType: "gameFinished",
				Payload:   map[string]interface{}{"winner": winner, "players": players},
				Timestamp: time.Now().UnixMilli(),
			}); err != nil {
				s.Logger.Warnf("failed to enqueue historian event for room %s: %v", roomID, err)
			}
		}()
	}
}

// lobbyPayload is the current rooms-list view plus everyone online.
func (s *LobbyServer) lobbyPayload() map[string]interface{} {
	return map[string]interface{}{
		"type":  "roomsList",
		"rooms": s.Rooms.Summaries(),
		"users": s.Conns.Usernames(),
	}
}

// BroadcastLobby pushes the rooms list to every connection not inside a room.
func (s *LobbyServer) BroadcastLobby() {
	msg := s.lobbyPayload()
	for _, c := range s.Conns.LobbyConnections() {
		c.Write(msg)
	}
}

func (s *LobbyServer) tournamentsPayload() map[string]interface{} {
	return map[string]interface{}{
		"type":        "tournamentsList",
		"tournaments": s.Tournaments.Tournaments.Summaries(),
	}
}
