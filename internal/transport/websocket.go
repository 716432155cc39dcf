package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cloi-dev/hub/internal/hubcore"
	"github.com/cloi-dev/hub/internal/router"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleWebSocket upgrades the connection and runs its lifetime: a
// read goroutine that routes every inbound Message, and a write loop
// on the calling goroutine that drains the identity's outbox and
// relays it over the wire.
func (s *Server) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	identity := chi.URLParam(req, "identity")
	if identity == "" {
		http.Error(w, "identity is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrade.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ob := s.deps.Router.Connect(identity, router.Policy{})
	defer s.deps.Router.Disconnect(identity)
	s.deps.Registry.Touch(identity)

	done := make(chan struct{})
	go s.readPump(conn, identity, done)
	s.writePump(conn, ob, done)
}

func (s *Server) readPump(conn *websocket.Conn, identity string, done chan struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var m hubcore.Message
		if err := conn.ReadJSON(&m); err != nil {
			return
		}
		m.From = identity
		if m.ID == "" {
			m.ID = hubcore.NewIdentity()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		if err := m.Normalize(""); err != nil {
			continue
		}
		s.deps.Registry.Touch(identity)
		_ = s.deps.Router.Route(m)
	}
}

func (s *Server) writePump(conn *websocket.Conn, ob *router.Outbox, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ob.Notify():
			for _, m := range ob.Drain() {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(m); err != nil {
					return
				}
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
