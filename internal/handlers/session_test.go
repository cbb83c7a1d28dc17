// internal/handlers/session_test.go
package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrujac/gamehub/internal/auth"
	"github.com/nrujac/gamehub/internal/conn"
)

// TestEnsureGuestSession checks a cookieless request mints a guest identity
// and that the issued cookie resolves back to the same user.
func TestEnsureGuestSession(t *testing.T) {
	auth.Init() // ephemeral keys

	req := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()

	identity, err := EnsureGuestSession(w, req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(identity.Username, "Guest-"))
	assert.Equal(t, conn.RoleGuest, identity.Role)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)

	// A second request presenting the cookie keeps the identity.
	req2 := httptest.NewRequest("GET", "/ws", nil)
	req2.Header.Set("Cookie", sessionCookieName+"="+cookies[0].Value)
	w2 := httptest.NewRecorder()

	identity2, err := EnsureGuestSession(w2, req2)
	require.NoError(t, err)
	assert.Equal(t, identity.Username, identity2.Username)
	assert.Empty(t, w2.Result().Cookies(), "no new cookie for a valid session")
}

// TestEnsureGuestSessionBadToken checks a garbage token falls back to a fresh
// guest session instead of failing the handshake.
func TestEnsureGuestSessionBadToken(t *testing.T) {
	auth.Init()

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Cookie", sessionCookieName+"=not-a-jwt")
	w := httptest.NewRecorder()

	identity, err := EnsureGuestSession(w, req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(identity.Username, "Guest-"))
	require.Len(t, w.Result().Cookies(), 1, "replacement cookie issued")
}

func TestExtractCookieToken(t *testing.T) {
	header := "other=1; session_token=abc.def.ghi; theme=dark"
	assert.Equal(t, "abc.def.ghi", extractCookieToken(header, "session_token"))
	assert.Equal(t, "", extractCookieToken("other=1", "session_token"))
}
