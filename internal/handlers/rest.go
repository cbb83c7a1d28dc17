// internal/handlers/rest.go
package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthHandler reports liveness.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// ListRoomsHandler exposes the lobby rooms list over plain HTTP, mirroring
// the roomsList socket event for clients that poll before connecting.
func ListRoomsHandler(s *LobbyServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rooms": s.Rooms.Summaries(),
			"users": s.Conns.Usernames(),
		})
	}
}

// ListTournamentsHandler exposes the tournament list over plain HTTP.
func ListTournamentsHandler(s *LobbyServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tournaments": s.Tournaments.Tournaments.Summaries(),
		})
	}
}
