package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleRosterStream pushes a roster snapshot on connect and after every
// change until the client goes away or the server shuts down.
func (s *Server) handleRosterStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	snaps, cancel := s.store.Subscribe()
	defer cancel()

	gone := make(chan struct{})
	go readPump(conn, gone)

	log := s.log.With(zap.String("remote", r.RemoteAddr))
	log.Debug("roster stream opened")
	defer log.Debug("roster stream closed")

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				log.Error("encoding roster snapshot", zap.Error(err))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("roster stream write", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-gone:
			return
		}
	}
}

// readPump discards client messages and keeps the read deadline fresh on
// pongs. It closes gone when the connection drops.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
