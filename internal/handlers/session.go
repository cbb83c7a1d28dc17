// internal/handlers/session.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nrujac/gamehub/internal/auth"
	"github.com/nrujac/gamehub/internal/conn"
)

const sessionCookieName = "session_token"

// EnsureGuestSession resolves the request's session cookie into an identity,
// minting a fresh guest session (and setting the cookie) when the token is
// missing or invalid. Must run before the websocket upgrade so the Set-Cookie
// header still reaches the client.
func EnsureGuestSession(w http.ResponseWriter, r *http.Request) (conn.Identity, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, sessionCookieName+"=") {
		token := extractCookieToken(cookieHeader, sessionCookieName)
		username, role, err := auth.AuthenticateSessionToken(token)
		if err == nil {
			return conn.Identity{Username: username, Role: conn.Role(role)}, nil
		}
		// fall through and mint a new guest session
	}

	username := fmt.Sprintf("Guest-%s", uuid.NewString()[:8])
	token, err := auth.CreateSessionToken(username, string(conn.RoleGuest))
	if err != nil {
		return conn.Identity{}, fmt.Errorf("failed to create guest session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return conn.Identity{Username: username, Role: conn.RoleGuest}, nil
}

// extractCookieToken extracts a named cookie value from the Cookie header, or
// returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}
