package event

import (
	"net/http"

	"github.com/wan0ge/sleepy/pkg/types"
)

// AppStartedEvent fires once the HTTP listener is up. Not interceptable.
type AppStartedEvent struct{ *meta }

func NewAppStarted() *AppStartedEvent {
	return &AppStartedEvent{newMeta(AppStarted, false, nil)}
}

// AppStoppedEvent fires on shutdown with the process exit code. Not interceptable.
type AppStoppedEvent struct {
	*meta
	ExitCode int
}

func NewAppStopped(code int) *AppStoppedEvent {
	return &AppStoppedEvent{meta: newMeta(AppStopped, false, nil), ExitCode: code}
}

// APIUnsuccessfulEvent fires whenever a request is rejected with a structured
// failure. Handlers may intercept to replace the error response entirely.
type APIUnsuccessfulEvent struct {
	*meta
	Code    int
	Message string
	Details string
}

func NewAPIUnsuccessful(r *http.Request, code int, message, details string) *APIUnsuccessfulEvent {
	return &APIUnsuccessfulEvent{meta: newMeta(APIUnsuccessful, true, r), Code: code, Message: message, Details: details}
}

// MetadataAccessEvent carries the /api/meta response before it is written.
type MetadataAccessEvent struct {
	*meta
	Metadata types.MetaResponse
}

func NewMetadataAccess(r *http.Request, meta types.MetaResponse) *MetadataAccessEvent {
	return &MetadataAccessEvent{meta: newMeta(MetadataAccess, true, r), Metadata: meta}
}

// MetricsAccessEvent carries the /api/metrics response before it is written.
type MetricsAccessEvent struct {
	*meta
	Metrics types.MetricsResponse
}

func NewMetricsAccess(r *http.Request, m types.MetricsResponse) *MetricsAccessEvent {
	return &MetricsAccessEvent{meta: newMeta(MetricsAccess, true, r), Metrics: m}
}

// QueryAccessEvent carries the /api/status/query response before it is
// written; the same payload feeds SSE update messages.
type QueryAccessEvent struct {
	*meta
	Response types.QueryResponse
}

func NewQueryAccess(r *http.Request, resp types.QueryResponse) *QueryAccessEvent {
	return &QueryAccessEvent{meta: newMeta(QueryAccess, true, r), Response: resp}
}

// StatusListAccessEvent carries the status catalog before it is written.
type StatusListAccessEvent struct {
	*meta
	StatusList []types.StatusItem
}

func NewStatusListAccess(r *http.Request, list []types.StatusItem) *StatusListAccessEvent {
	return &StatusListAccessEvent{meta: newMeta(StatusListAccess, true, r), StatusList: list}
}

// StreamConnectedEvent fires when an SSE viewer attaches. LastEventID is the
// sequence number the client resumed with; there is no replay buffer, it only
// seeds the per-channel counter.
type StreamConnectedEvent struct {
	*meta
	LastEventID int
}

func NewStreamConnected(r *http.Request, lastEventID int) *StreamConnectedEvent {
	return &StreamConnectedEvent{meta: newMeta(StreamConnected, true, r), LastEventID: lastEventID}
}

// StreamDisconnectedEvent fires when an SSE viewer goes away. Not interceptable.
type StreamDisconnectedEvent struct{ *meta }

func NewStreamDisconnected(r *http.Request) *StreamDisconnectedEvent {
	return &StreamDisconnectedEvent{newMeta(StreamDisconnected, false, r)}
}

// StatusUpdatedEvent fires before a manual status change commits. NewStatus
// is what will be stored; handlers may substitute a different one.
type StatusUpdatedEvent struct {
	*meta
	OldExists bool
	OldStatus types.StatusItem
	NewExists bool
	NewStatus types.StatusItem
}

func NewStatusUpdated(r *http.Request, oldExists bool, old types.StatusItem, newExists bool, next types.StatusItem) *StatusUpdatedEvent {
	return &StatusUpdatedEvent{
		meta:      newMeta(StatusUpdated, true, r),
		OldExists: oldExists,
		OldStatus: old,
		NewExists: newExists,
		NewStatus: next,
	}
}

// DeviceSetEvent fires before a device upsert commits. All fields may be
// rewritten; the store consumes the final values.
type DeviceSetEvent struct {
	*meta
	DeviceID string
	ShowName *string
	Using    *bool
	Status   *string
	Fields   map[string]any
}

func NewDeviceSet(r *http.Request, req types.DeviceSetRequest) *DeviceSetEvent {
	status := req.Status
	if status == nil {
		status = req.AppName
	}
	return &DeviceSetEvent{
		meta:     newMeta(DeviceSet, true, r),
		DeviceID: req.ID,
		ShowName: req.ShowName,
		Using:    req.Using,
		Status:   status,
		Fields:   req.Fields,
	}
}

// DeviceRemovedEvent fires before a device removal. Exists is false when the
// id was not present; the removal still "succeeds" in that case.
type DeviceRemovedEvent struct {
	*meta
	Exists   bool
	DeviceID string
	Device   types.Device
}

func NewDeviceRemoved(r *http.Request, id string, exists bool, dev types.Device) *DeviceRemovedEvent {
	return &DeviceRemovedEvent{meta: newMeta(DeviceRemoved, true, r), Exists: exists, DeviceID: id, Device: dev}
}

// DeviceClearedEvent fires before all devices are dropped, carrying the full
// prior map.
type DeviceClearedEvent struct {
	*meta
	Devices map[string]types.Device
}

func NewDeviceCleared(r *http.Request, devices map[string]types.Device) *DeviceClearedEvent {
	return &DeviceClearedEvent{meta: newMeta(DeviceCleared, true, r), Devices: devices}
}

// PrivateModeChangedEvent fires before the private-mode flag flips.
type PrivateModeChangedEvent struct {
	*meta
	Old bool
	New bool
}

func NewPrivateModeChanged(r *http.Request, old, next bool) *PrivateModeChangedEvent {
	return &PrivateModeChangedEvent{meta: newMeta(PrivateModeChanged, true, r), Old: old, New: next}
}
