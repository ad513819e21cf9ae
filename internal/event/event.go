// Package event provides the in-process event bus the rest of the daemon
// mutates through. Every state-changing operation builds a typed event,
// dispatches it, and honors the result: handlers registered by plugins may
// rewrite the event's fields or intercept it entirely, in which case the
// triggering call site returns the interception payload instead of its
// normal response. It is structured into small files by concern:
//
//   - event.go: Identity constants, the Event interface and Meta.
//   - variants.go: one struct per event identity (closed set).
//   - bus.go: handler registry and sequential dispatch with fault isolation.
package event

import (
	"net/http"
	"time"
)

// Identity is the stable key identifying a kind of occurrence.
type Identity string

const (
	AppStarted         Identity = "app_started"
	AppStopped         Identity = "app_stopped"
	APIUnsuccessful    Identity = "api_unsuccessful"
	MetadataAccess     Identity = "metadata_access"
	MetricsAccess      Identity = "metrics_access"
	QueryAccess        Identity = "query_access"
	StatusListAccess   Identity = "statuslist_access"
	StreamConnected    Identity = "stream_connected"
	StreamDisconnected Identity = "stream_disconnected"
	StatusUpdated      Identity = "status_updated"
	DeviceSet          Identity = "device_set"
	DeviceRemoved      Identity = "device_removed"
	DeviceCleared      Identity = "device_cleared"
	PrivateModeChanged Identity = "private_mode_changed"
)

// Event is implemented by every variant in this package. An event instance is
// owned by the dispatching call stack for its lifetime; handlers that need to
// keep anything past their own invocation must copy fields out.
type Event interface {
	Identity() Identity
	Meta() *Meta
	// Clone copies the event. The bus hands each handler a clone so a
	// faulting handler's in-place edits never reach the next handler.
	Clone() Event
}

// meta aliases Meta for embedding: the alias gives the embedded field a name
// that does not shadow the promoted Meta() method on the variants.
type meta = Meta

// Meta carries the bookkeeping shared by all variants: the interception state
// and the originating request, if the event was triggered by one.
type Meta struct {
	id            Identity
	interceptable bool
	intercepted   bool
	interception  any

	// Time the event was created.
	Time time.Time
	// Request that triggered the event, nil for lifecycle events.
	Request *http.Request
}

func newMeta(id Identity, interceptable bool, r *http.Request) *Meta {
	return &Meta{id: id, interceptable: interceptable, Time: time.Now(), Request: r}
}

func (m *Meta) copy() *Meta {
	c := *m
	return &c
}

func (m *Meta) Identity() Identity  { return m.id }
func (m *Meta) Meta() *Meta         { return m }
func (m *Meta) Interceptable() bool { return m.interceptable }
func (m *Meta) Intercepted() bool   { return m.intercepted }

// Interception returns the payload supplied by the intercepting handler.
func (m *Meta) Interception() any { return m.interception }

// Intercept short-circuits dispatch and supplies the final result. Ignored
// on events whose identity is not interceptable.
func (m *Meta) Intercept(payload any) {
	if !m.interceptable {
		return
	}
	m.intercepted = true
	m.interception = payload
}
