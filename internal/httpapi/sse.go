package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wan0ge/sleepy/internal/event"
)

const defaultHeartbeat = 30 * time.Second

// handleEvents serves one live channel per viewer as a text event stream.
// Instead of polling on a fixed cadence, the loop blocks on the store's
// watch channel and wakes the moment a mutation commits; the heartbeat
// timer only fires after 30s without an emitted message so intermediary
// proxies keep the connection open.
//
// A Last-Event-ID header seeds the per-channel sequence number. There is no
// replay buffer: updates missed while disconnected are gone until the next
// change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	seq := 0
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, "invalid Last-Event-ID header, it must be int", "")
			return
		}
		seq = n
	}

	evt := s.Bus.Dispatch(r.Context(), event.NewStreamConnected(r, seq)).(*event.StreamConnectedEvent)
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	seq = evt.LastEventID

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s.Log.Info().Str("ip", r.RemoteAddr).Msg("sse channel connected")
	sseConnections.Inc()
	defer func() {
		sseConnections.Dec()
		s.Log.Info().Str("ip", r.RemoteAddr).Msg("sse channel disconnected")
		// The request context is gone; the disconnect notification still runs.
		s.Bus.Dispatch(context.Background(), event.NewStreamDisconnected(r))
	}()

	heartbeat := s.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	timer := time.NewTimer(heartbeat)
	defer timer.Stop()

	var lastMarker time.Time // zero: the first pass always emits a snapshot
	for {
		// Arm the watch before reading the marker so a mutation landing in
		// between still wakes the select below.
		watch := s.Store.Watch()
		if marker := s.Store.Marker(); !marker.Equal(lastMarker) {
			lastMarker = marker
			payload, err := json.Marshal(s.buildQuery(r).Response)
			if err != nil {
				s.Log.Error().Err(err).Msg("sse payload encode failed")
				return
			}
			seq++
			fmt.Fprintf(w, "id: %d\nevent: update\ndata: %s\n\n", seq, payload)
			flusher.Flush()
			sseMessagesTotal.WithLabelValues("update").Inc()
			resetTimer(timer, heartbeat)
		}

		select {
		case <-r.Context().Done():
			return
		case <-watch:
			// State changed; loop around and emit.
		case <-timer.C:
			seq++
			fmt.Fprintf(w, "id: %d\nevent: heartbeat\ndata:\n\n", seq)
			flusher.Flush()
			sseMessagesTotal.WithLabelValues("heartbeat").Inc()
			timer.Reset(heartbeat)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
