package security

import (
	"crypto/subtle"
	"net/http"
)

// AuthorizeSubscriber checks the shared subscriber secret on a websocket
// handshake. The token may arrive as the Sec-WebSocket-Protocol value (some
// browser clients can only smuggle credentials through the subprotocol list)
// or as the `token` query parameter. An empty configured token means open
// mode: every handshake is accepted.
func AuthorizeSubscriber(r *http.Request, token string) bool {
	if token == "" {
		return true
	}

	headerToken := r.Header.Get("Sec-WebSocket-Protocol")
	queryToken := r.URL.Query().Get("token")

	// Use constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(headerToken), []byte(token)) == 1 ||
		subtle.ConstantTimeCompare([]byte(queryToken), []byte(token)) == 1
}
