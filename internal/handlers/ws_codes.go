// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby handler. These give clients
// a more specific reason for closure than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Session token was invalid and a guest session could not be minted.
)
