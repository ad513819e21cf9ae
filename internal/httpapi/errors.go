package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/pkg/types"
)

// writeJSON writes any payload with a status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail rejects the request with the structured failure envelope. The
// rejection routes through the api_unsuccessful event first, so plugins can
// rewrite or intercept the error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, msg, details string) {
	s.Log.Error().Int("code", code).Str("message", msg).Str("path", r.URL.Path).Msg("api error")
	evt := s.Bus.Dispatch(r.Context(), event.NewAPIUnsuccessful(r, code, msg, details)).(*event.APIUnsuccessfulEvent)
	if evt.Intercepted() {
		writeJSON(w, http.StatusOK, evt.Interception())
		return
	}
	writeJSON(w, evt.Code, types.ErrorResponse{Code: evt.Code, Message: evt.Message, Details: evt.Details})
}

// intercepted writes an interception payload verbatim. Handlers that
// intercept decide the body; the transport answers 200.
func intercepted(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, payload)
}
