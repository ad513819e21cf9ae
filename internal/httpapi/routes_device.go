package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wan0ge/sleepy/internal/store"
	"github.com/wan0ge/sleepy/pkg/types"
)

// tobool parses the loose boolean syntax clients send in query strings.
// Returns nil when the value is absent or unrecognized.
func tobool(v string) *bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		t := true
		return &t
	case "0", "false", "no", "off":
		f := false
		return &f
	default:
		return nil
	}
}

// reserved query parameters that never land in a device's field map.
var reservedDeviceParams = map[string]bool{
	"id": true, "show_name": true, "using": true,
	"status": true, "app_name": true, "secret": true,
}

// handleDeviceSetGET upserts a device from query parameters. Any parameter
// not claimed by the known fields becomes an entry in the field map.
func (s *Server) handleDeviceSetGET(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := types.DeviceSetRequest{ID: q.Get("id")}
	if v, ok := q["show_name"]; ok && len(v) > 0 {
		req.ShowName = &v[0]
	}
	if v := q.Get("using"); v != "" {
		req.Using = tobool(v)
	}
	if v, ok := q["status"]; ok && len(v) > 0 {
		req.Status = &v[0]
	} else if v, ok := q["app_name"]; ok && len(v) > 0 { // legacy name
		req.Status = &v[0]
	}
	for k, v := range q {
		if reservedDeviceParams[k] || len(v) == 0 {
			continue
		}
		if req.Fields == nil {
			req.Fields = make(map[string]any)
		}
		req.Fields[k] = v[0]
	}
	s.commitDeviceSet(w, r, req)
}

// handleDeviceSetPOST upserts a device from a JSON body.
func (s *Server) handleDeviceSetPOST(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		s.fail(w, r, http.StatusUnsupportedMediaType, "Content-Type must be application/json", "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.DeviceSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	s.commitDeviceSet(w, r, req)
}

func (s *Server) commitDeviceSet(w http.ResponseWriter, r *http.Request, req types.DeviceSetRequest) {
	evt, err := s.Store.UpsertDevice(r.Context(), r, req)
	if err != nil {
		if store.IsMissingDeviceID(err) {
			s.fail(w, r, http.StatusBadRequest, "missing device id", "")
			return
		}
		s.fail(w, r, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// handleDeviceRemove drops a single device. Removing an id that does not
// exist still succeeds.
func (s *Server) handleDeviceRemove(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.fail(w, r, http.StatusBadRequest, "missing device id", "")
		return
	}
	evt := s.Store.RemoveDevice(r.Context(), r, id)
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// handleDeviceClear drops every device.
func (s *Server) handleDeviceClear(w http.ResponseWriter, r *http.Request) {
	evt := s.Store.ClearDevices(r.Context(), r)
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// handleDevicePrivate flips private mode. Devices keep updating while
// private; they are just omitted from viewer-facing payloads.
func (s *Server) handleDevicePrivate(w http.ResponseWriter, r *http.Request) {
	v := tobool(r.URL.Query().Get("private"))
	if v == nil {
		s.fail(w, r, http.StatusBadRequest, "'private' arg must be boolean", "")
		return
	}
	evt := s.Store.SetPrivateMode(r.Context(), r, *v)
	if evt != nil && evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}
