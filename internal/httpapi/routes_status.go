package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/pkg/types"
)

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// buildQuery assembles the status-query payload and routes it through the
// query_access event. The returned event carries the (possibly rewritten)
// response; SSE update frames reuse it.
func (s *Server) buildQuery(r *http.Request) *event.QueryAccessEvent {
	snap := s.Store.Snapshot()
	resp := types.QueryResponse{
		Success:     true,
		Time:        unixSeconds(time.Now()),
		Status:      snap.Status,
		Device:      snap.Devices,
		LastUpdated: unixSeconds(snap.LastUpdated),
	}
	return s.Bus.Dispatch(r.Context(), event.NewQueryAccess(r, resp)).(*event.QueryAccessEvent)
}

// handleQuery returns the aggregate current status. Public.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	evt := s.buildQuery(r)
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, evt.Response)
}

// handleStatusList returns the configured status catalog. Public.
func (s *Server) handleStatusList(w http.ResponseWriter, r *http.Request) {
	evt := s.Bus.Dispatch(r.Context(), event.NewStatusListAccess(r, s.Store.StatusList())).(*event.StatusListAccessEvent)
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, types.StatusListResponse{Success: true, StatusList: evt.StatusList})
}

// handleStatusSet commits a manual status change. Requires the secret.
// Unconfigured ids are accepted and stored verbatim.
func (s *Server) handleStatusSet(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	id, err := strconv.Atoi(raw)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "argument 'status' must be int", "")
		return
	}
	evt, setTo := s.Store.SetManualStatus(r.Context(), r, id)
	if evt != nil && evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, types.SetStatusResponse{Success: true, SetTo: setTo})
}

// handleMeta describes the deployment. Public.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta := types.MetaResponse{
		Success:  true,
		Version:  s.Version,
		Timezone: s.Cfg.Main.Timezone,
		Page: map[string]any{
			"name":       s.Cfg.Page.Name,
			"title":      s.Cfg.Page.Title,
			"desc":       s.Cfg.Page.Desc,
			"favicon":    s.Cfg.Page.Favicon,
			"background": s.Cfg.Page.Background,
			"theme":      s.Cfg.Page.Theme,
		},
		Status: map[string]any{
			"device_slice":     s.Cfg.Status.DeviceSlice,
			"refresh_interval": s.Cfg.Status.RefreshInterval,
			"not_using":        s.Cfg.Status.NotUsing,
			"sorted":           s.Cfg.Status.Sorted,
			"using_first":      s.Cfg.Status.UsingFirst,
		},
		Metrics: s.Cfg.Metrics.Enabled,
	}
	evt := s.Bus.Dispatch(r.Context(), event.NewMetadataAccess(r, meta)).(*event.MetadataAccessEvent)
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, evt.Metadata)
}

// handleMetrics returns the JSON visit counters. Public.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := types.MetricsResponse{
		Success: true,
		Time:    unixSeconds(time.Now()),
		Visits:  s.visits.snapshot(),
	}
	evt := s.Bus.Dispatch(r.Context(), event.NewMetricsAccess(r, resp)).(*event.MetricsAccessEvent)
	if evt.Intercepted() {
		intercepted(w, evt.Interception())
		return
	}
	writeJSON(w, http.StatusOK, evt.Metrics)
}
