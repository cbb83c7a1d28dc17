// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nrujac/gamehub/internal/conn"
)

// LobbyWSHandler upgrades the request to a websocket and runs the connection
// until it drops. Every inbound event (rooms, moves, invitations,
// tournaments) arrives on this one socket.
func LobbyWSHandler(logger *logrus.Logger, s *LobbyServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		// Authenticate before Accept; the guest-session cookie has to go out
		// with the upgrade response headers.
		identity, err := EnsureGuestSession(w, r)
		if err != nil {
			logger.Warnf("session handshake failed for %s: %v", remoteAddr, err)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer ws.Close(websocket.StatusInternalError, "handler finished")

		if ws.Subprotocol() != "lobby" {
			ws.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		c := conn.NewConnection(identity, cancel)
		s.Conns.Add(c)

		logger.Infof("user %s (%s) connected as conn %s", identity.Username, remoteAddr, c.ID)

		c.Write(map[string]interface{}{
			"type":     "welcome",
			"username": identity.Username,
			"role":     string(identity.Role),
		})
		c.Write(s.lobbyPayload())
		s.BroadcastLobby()

		go writePump(ctx, ws, c, logger)
		readPump(ctx, ws, s, c, logger)

		logger.Infof("conn %s (%s) read pump exited, cleaning up", c.ID, identity.Username)
		s.handleDisconnect(c)
	}
}

// readPump decodes inbound frames and dispatches them. Rooms and coordinators
// take their own locks, so dispatch holds nothing here.
func readPump(ctx context.Context, ws *websocket.Conn, s *LobbyServer, c *conn.Connection, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, data, err := ws.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("conn %s closed normally", c.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				// cancelled by displacement or shutdown
			} else {
				logger.Warnf("conn %s read error: %v (close status %d)", c.ID, err, closeStatus)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("conn %s sent non-text message type %d, ignoring", c.ID, typ)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("conn %s sent invalid json: %v", c.ID, err)
			c.Write(map[string]interface{}{"type": "error", "message": "invalid JSON"})
			continue
		}

		s.handleMessage(ctx, c, &msg)
	}
}

// writePump drains the connection's outbound channel onto the socket and
// keeps the connection alive with periodic pings.
func writePump(ctx context.Context, ws *websocket.Conn, c *conn.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer ws.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("conn %s: failed to marshal outgoing msg: %v", c.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: websocket write failed: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: ping failed, assuming disconnect: %v", c.ID, err)
				return
			}
		}
	}
}

// handleDisconnect unwinds a dropped connection: forfeits its live game,
// voids its invitations, and tells the lobby. A connection displaced by the
// same user reconnecting was already unmapped by the registry and has nothing
// to unwind.
func (s *LobbyServer) handleDisconnect(c *conn.Connection) {
	if cur, ok := s.Conns.Get(c.ID); !ok || cur != c {
		return
	}

	if roomID := s.Conns.RoomOf(c.ID); roomID != "" {
		if r, err := s.Rooms.Get(roomID); err == nil {
			seated := r.IsSeated(c.Identity.Username)
			r.Leave(c)
			if seated {
				s.Rematch.Clear(roomID)
			}
		}
	}
	s.Invites.DropFor(c.Identity.Username)
	s.Conns.Remove(c.ID)
	s.BroadcastLobby()
}
