package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/cachestats/gateway"
	"github.com/c360/cachestats/management"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = pongWait * 9 / 10
)

// handleStream upgrades to a websocket and pushes one frame per interval until
// the client leaves, the server stops or the cache is unregistered
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getOrGenerateRequestID(r)
	namespace, name := r.PathValue("namespace"), r.PathValue("name")

	view, ok := s.registry.Lookup(namespace, name)
	if !ok {
		resp := s.registry.Query(management.QueryRequest{Namespace: namespace, Name: name})
		w.Header().Set("X-Request-ID", requestID)
		s.writeJSON(w, gateway.StatusForCode(resp.Code), resp)
		s.core.RecordQuery(gateway.TransportStream, gateway.Outcome(resp.Code), time.Since(start))
		return
	}

	if !s.trackStream() {
		w.Header().Set("X-Request-ID", requestID)
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.Done()

	conn, err := s.upgrader.Upgrade(w, r, http.Header{"X-Request-ID": []string{requestID}})
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Debug("Websocket upgrade failed", "request_id", requestID, "error", err)
		return
	}
	s.core.RecordQuery(gateway.TransportStream, gateway.Outcome(""), time.Since(start))
	defer conn.Close()

	s.core.RecordStreamClient(1)
	defer s.core.RecordStreamClient(-1)

	s.logger.Debug("Stream opened",
		"request_id", requestID,
		"key", view.Key().String(),
		"remote", r.RemoteAddr)

	s.runStream(conn, view)

	s.logger.Debug("Stream closed", "request_id", requestID, "key", view.Key().String())
}

func (s *Server) runStream(conn *websocket.Conn, view *management.View) {
	gone := make(chan struct{})
	go readUntilClosed(conn, gone)

	ticker := time.NewTicker(s.config.StreamInterval)
	defer ticker.Stop()
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()

	var sequence uint64
	for {
		sequence++
		frame := gateway.NewFrame(view, sequence)
		if err := writeFrame(conn, frame); err != nil {
			s.logger.Debug("Stream write failed", "key", view.Key().String(), "error", err)
			return
		}
		s.core.RecordStreamFrame()

		if frame.Terminal() {
			closeStream(conn, websocket.CloseNormalClosure, frame.Code)
			return
		}

		if !s.awaitTick(conn, ticker.C, ping.C, gone) {
			return
		}
	}
}

// awaitTick blocks until the next frame is due, answering ping ticks on the way.
// It returns false once the stream should end.
func (s *Server) awaitTick(conn *websocket.Conn, tick, ping <-chan time.Time, gone <-chan struct{}) bool {
	for {
		select {
		case <-tick:
			return true
		case <-ping:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return false
			}
		case <-gone:
			return false
		case <-s.done:
			closeStream(conn, websocket.CloseGoingAway, "server shutting down")
			return false
		}
	}
}

// readUntilClosed drains client messages so control frames are processed and
// a client close is noticed
func readUntilClosed(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame gateway.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
