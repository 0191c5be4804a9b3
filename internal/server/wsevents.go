package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/events"
)

type wsEventEnvelope struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
}

// handleWSEvents implements GET /ws/events: a raw broadcast of the typed
// SessionEvent stream, grounded in the teacher's ws.Hub subscribe-and-pump
// shape but fed directly from events.Bus instead of a Redis channel (the
// bus is this process's single source of truth; redisrelay is the optional
// cross-process mirror). This is an event transport, not a dashboard.
func (s *Server) handleWSEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("server: websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	messages := make(chan []byte, 32)

	unsubscribe := s.bus.Subscribe(func(evt events.Event) {
		payload, marshalErr := json.Marshal(wsEventEnvelope{
			Kind:      string(evt.Kind()),
			SessionID: evt.SessionID(),
			Timestamp: evt.Timestamp(),
		})
		if marshalErr != nil {
			return
		}
		select {
		case messages <- payload:
		default:
			log.Warn().Msg("server: ws/events subscriber too slow, dropping event")
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg := <-messages:
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("server: ws/events write failed")
				return
			}
		}
	}
}
