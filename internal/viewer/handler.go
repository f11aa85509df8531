package viewer

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Authorizer checks the token query parameter and returns the subject.
type Authorizer func(token string) (string, error)

// Handler upgrades GET /ws/view requests and attaches them to hub.
func Handler(hub *Hub, authorize Authorizer, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := authorize(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, uuid.New().String(), subject)
		if !hub.Register(client) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
