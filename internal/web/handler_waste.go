package web

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vbonduro/ecosort/internal/auth"
)

func (s *Server) handleWasteTable(w http.ResponseWriter, r *http.Request) {
	page, err := s.resources.Waste(r.Context(), auth.SessionFrom(r.Context()), tableQuery(r))
	if err != nil {
		s.failure(w, r, err, "Failed to load waste records.")
		return
	}
	s.showTable(w, r, wasteView, newTableData(page, wasteView.path, wasteView.target()))
}

const (
	livePing      = 25 * time.Second
	wsWriteWait   = 10 * time.Second
	wsReadTimeout = 2 * livePing
)

// handleWasteLive streams each record received from the API as a rendered
// table row in a "waste" event, ready for the htmx SSE extension to prepend.
func (s *Server) handleWasteLive(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live feed unavailable", http.StatusServiceUnavailable)
		return
	}
	tmpl, err := s.parsePartial("partials/waste_row.html")
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		s.logger.Error("parse waste row failed", "error", err)
		return
	}

	records, cancel := s.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}
	flush()

	ping := time.NewTicker(livePing)
	defer ping.Stop()

	var buf bytes.Buffer
	for {
		select {
		case <-r.Context().Done():
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			buf.Reset()
			if err := tmpl.ExecuteTemplate(&buf, "waste_row", rec); err != nil {
				s.logger.Error("render waste row failed", "record_id", rec.ID, "error", err)
				continue
			}
			if err := writeEvent(w, "waste", buf.String()); err != nil {
				return
			}
			flush()
		case <-ping.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flush()
		}
	}
}

// writeEvent writes one SSE event, splitting multi-line data into several
// data fields.
func writeEvent(w io.Writer, event, data string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// The zero CheckOrigin rejects cross-origin upgrades, which is what a
// cookie-authenticated socket needs.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWasteLiveWS pushes each live record to the socket as JSON.
func (s *Server) handleWasteLiveWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live feed unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer closeWithLog(conn, "websocket", s.logger)

	records, cancel := s.hub.Subscribe()
	defer cancel()

	// The browser never sends data; reading surfaces pongs and the close frame.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePing)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case <-gone:
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(rec); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
