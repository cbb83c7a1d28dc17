// internal/handlers/dispatch.go
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/nrujac/gamehub/internal/cache"
	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
	"github.com/nrujac/gamehub/internal/room"
)

// Message is the envelope for every inbound frame. Which fields are set
// depends on Type; absent fields decode to their zero value.
type Message struct {
	Type         string                 `json:"type"`
	Name         string                 `json:"name,omitempty"`
	GameType     string                 `json:"gameType,omitempty"`
	RoomID       string                 `json:"roomId,omitempty"`
	AsSpectator  bool                   `json:"asSpectator,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	To           string                 `json:"to,omitempty"`
	From         string                 `json:"from,omitempty"`
	TournamentID string                 `json:"tournamentId,omitempty"`
	MaxPlayers   int                    `json:"maxPlayers,omitempty"`
	Text         string                 `json:"message,omitempty"`
}

func (s *LobbyServer) handleMessage(ctx context.Context, c *conn.Connection, msg *Message) {
	switch msg.Type {
	case "ping":
		c.Write(map[string]interface{}{"type": "pong"})
	case "getRooms":
		c.Write(s.lobbyPayload())
	case "createRoom":
		s.handleCreateRoom(c, msg)
	case "joinRoom":
		s.handleJoinRoom(c, msg)
	case "leaveRoom":
		s.handleLeaveRoom(c, msg)
	case "makeMove":
		s.handleMove(ctx, c, msg)
	case "placementAction":
		s.handlePlacement(c, msg)
	case "chat":
		s.handleChat(c, msg)
	case "restartRequest":
		s.handleRestartRequest(c, msg)
	case "sendInvitation":
		if err := s.Invites.Send(c, msg.To, engine.GameType(msg.GameType)); err != nil {
			writeInviteError(c, err)
		}
	case "acceptInvitation":
		s.handleAcceptInvitation(c, msg)
	case "declineInvitation":
		if err := s.Invites.Decline(c, msg.From); err != nil {
			writeInviteError(c, err)
		}
	case "cancelInvitation":
		if err := s.Invites.Cancel(c); err != nil {
			writeInviteError(c, err)
		}
	case "createTournament":
		if _, err := s.Tournaments.Create(msg.Name, engine.GameType(msg.GameType), msg.MaxPlayers, c); err != nil {
			writeKindError(c, err)
			return
		}
		s.broadcastTournaments()
	case "joinTournament":
		if err := s.Tournaments.Join(msg.TournamentID, c); err != nil {
			writeKindError(c, err)
			return
		}
		s.broadcastTournaments()
	case "leaveTournament":
		if err := s.Tournaments.Leave(msg.TournamentID, c); err != nil {
			writeKindError(c, err)
			return
		}
		s.broadcastTournaments()
	case "startTournament":
		if err := s.Tournaments.Start(msg.TournamentID, c); err != nil {
			writeKindError(c, err)
			return
		}
		// First-round rooms now exist; the lobby sees them immediately.
		s.BroadcastLobby()
		s.broadcastTournaments()
	case "getTournaments":
		c.Write(s.tournamentsPayload())
	default:
		s.Logger.Warnf("conn %s sent unknown message type %q", c.ID, msg.Type)
		c.Write(map[string]interface{}{
			"type":    "error",
			"message": fmt.Sprintf("unknown message type: %s", msg.Type),
		})
	}
}

func (s *LobbyServer) handleCreateRoom(c *conn.Connection, msg *Message) {
	if s.Conns.InRoom(c.Identity.Username) {
		c.WriteError(string(errs.NotEligible), "already in a room")
		return
	}
	name := msg.Name
	if name == "" {
		name = fmt.Sprintf("%s's game", c.Identity.Username)
	}
	r, err := s.Rooms.Create(name, engine.GameType(msg.GameType), c)
	if err != nil {
		writeKindError(c, err)
		return
	}
	s.Conns.SetRoom(c.ID, r.ID)
	c.Write(map[string]interface{}{"type": "roomCreated", "room": r.Summarize()})
	s.BroadcastLobby()
}

func (s *LobbyServer) handleJoinRoom(c *conn.Connection, msg *Message) {
	r, err := s.Rooms.Get(msg.RoomID)
	if err != nil {
		writeKindError(c, err)
		return
	}
	// One room per user, spectating included: re-pointing a seated player's
	// binding would orphan their live game on disconnect.
	if s.Conns.InRoom(c.Identity.Username) {
		c.WriteError(string(errs.NotEligible), "already in a room")
		return
	}
	if msg.AsSpectator {
		r.AddSpectator(c)
		s.Conns.SetRoom(c.ID, r.ID)
		s.BroadcastLobby()
		return
	}
	if _, err := r.AddPlayer(c); err != nil {
		writeKindError(c, err)
		return
	}
	s.Conns.SetRoom(c.ID, r.ID)
	s.BroadcastLobby()
}

func (s *LobbyServer) handleLeaveRoom(c *conn.Connection, msg *Message) {
	roomID := msg.RoomID
	if roomID == "" {
		roomID = s.Conns.RoomOf(c.ID)
	}
	r, err := s.Rooms.Get(roomID)
	if err != nil {
		s.Conns.ClearRoom(c.ID)
		writeKindError(c, err)
		return
	}
	seated := r.IsSeated(c.Identity.Username)
	r.Leave(c)
	if seated {
		// A departing seat holder voids any pending rematch request.
		s.Rematch.Clear(roomID)
	}
	s.Conns.ClearRoom(c.ID)
	c.Write(s.lobbyPayload())
	s.BroadcastLobby()
}

func (s *LobbyServer) handleMove(ctx context.Context, c *conn.Connection, msg *Message) {
	r, err := s.roomFor(c, msg)
	if err != nil {
		writeKindError(c, err)
		return
	}
	if err := r.Move(c, msg.Payload); err != nil {
		writeKindError(c, err)
		return
	}
	if cache.Enabled() {
		record := cache.RoomEventRecord{
			RoomID:    r.ID,
			GameType:  string(r.GameType),
			Actor:     c.Identity.Username,
			EventType: "move",
			Payload:   msg.Payload,
			Timestamp: time.Now().UnixMilli(),
		}
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := cache.PublishRoomEvent(pubCtx, record); err != nil {
				s.Logger.Warnf("failed to enqueue move event for room %s: %v", r.ID, err)
			}
		}()
	}
	if r.Summarize().Status == string(room.StatusFinished) {
		s.BroadcastLobby()
	}
}

func (s *LobbyServer) handlePlacement(c *conn.Connection, msg *Message) {
	r, err := s.roomFor(c, msg)
	if err != nil {
		writeKindError(c, err)
		return
	}
	if err := r.Placement(c, msg.Payload); err != nil {
		writeKindError(c, err)
	}
}

func (s *LobbyServer) handleChat(c *conn.Connection, msg *Message) {
	if msg.Text == "" {
		return
	}
	if roomID := s.Conns.RoomOf(c.ID); roomID != "" {
		if r, err := s.Rooms.Get(roomID); err == nil {
			r.Chat(c, msg.Text)
			return
		}
	}
	// Lobby chat goes to everyone not inside a room.
	out := map[string]interface{}{
		"type":    "chat",
		"from":    c.Identity.Username,
		"message": msg.Text,
	}
	for _, lc := range s.Conns.LobbyConnections() {
		lc.Write(out)
	}
}

func (s *LobbyServer) handleRestartRequest(c *conn.Connection, msg *Message) {
	roomID := msg.RoomID
	if roomID == "" {
		roomID = s.Conns.RoomOf(c.ID)
	}
	r, err := s.Rooms.Get(roomID)
	if err != nil {
		writeKindError(c, err)
		return
	}
	successor, err := s.Rematch.Request(r, c)
	if err != nil {
		writeKindError(c, err)
		return
	}
	if successor != nil {
		s.moveSeatsToRoom(successor)
		s.BroadcastLobby()
	}
}

func (s *LobbyServer) handleAcceptInvitation(c *conn.Connection, msg *Message) {
	r, err := s.Invites.Accept(c, msg.From)
	if err != nil {
		writeInviteError(c, err)
		return
	}
	s.moveSeatsToRoom(r)
	s.BroadcastLobby()
}

// roomFor resolves the room an in-game action targets, falling back to the
// sender's current room when the message names none.
func (s *LobbyServer) roomFor(c *conn.Connection, msg *Message) (*room.Room, error) {
	roomID := msg.RoomID
	if roomID == "" {
		roomID = s.Conns.RoomOf(c.ID)
	}
	return s.Rooms.Get(roomID)
}

// moveSeatsToRoom repoints the registry's room mapping for every seat holder
// of a freshly created room (invitation acceptance, rematch successor).
func (s *LobbyServer) moveSeatsToRoom(r *room.Room) {
	for _, username := range r.SeatNames() {
		if pc, ok := s.Conns.GetByUsername(username); ok {
			s.Conns.SetRoom(pc.ID, r.ID)
		}
	}
}

func (s *LobbyServer) broadcastTournaments() {
	msg := s.tournamentsPayload()
	for _, c := range s.Conns.LobbyConnections() {
		c.Write(msg)
	}
}

func writeKindError(c *conn.Connection, err error) {
	c.WriteError(string(errs.KindOf(err)), err.Error())
}

// writeInviteError reports invitation failures on the dedicated invitation
// error event rather than the generic one.
func writeInviteError(c *conn.Connection, err error) {
	c.Write(map[string]interface{}{
		"type":    "invitationError",
		"kind":    string(errs.KindOf(err)),
		"message": err.Error(),
	})
}
