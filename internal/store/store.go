// Package store is the authoritative in-memory state of the daemon: the
// manual status, the device map, the private-mode flag and the "last updated"
// marker live channels watch. Every mutation dispatches its event through the
// bus first and commits the event's (possibly rewritten) values; the commit
// plus marker bump happens under one exclusive lock so snapshots stay
// consistent with concurrent mutations.
package store

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/pkg/types"
)

type Store struct {
	log     zerolog.Logger
	bus     *event.Bus
	catalog []types.StatusItem
	path    string

	mu          sync.RWMutex
	statusID    int
	devices     map[string]types.Device
	privateMode bool
	lastUpdated time.Time
	watch       chan struct{}
	dirty       bool
	pluginData  map[string]map[string]any
}

// New builds an empty store. path is where Load/Save persist state; empty
// disables persistence.
func New(log zerolog.Logger, bus *event.Bus, catalog []types.StatusItem, path string) *Store {
	return &Store{
		log:         log,
		bus:         bus,
		catalog:     append([]types.StatusItem(nil), catalog...),
		path:        path,
		devices:     make(map[string]types.Device),
		lastUpdated: time.Now(),
		watch:       make(chan struct{}),
		pluginData:  make(map[string]map[string]any),
	}
}

// Snapshot is an atomic, consistent read of viewer-facing state.
type Snapshot struct {
	Status      types.StatusItem
	StatusID    int
	Devices     map[string]types.Device
	Private     bool
	LastUpdated time.Time
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		StatusID:    s.statusID,
		Private:     s.privateMode,
		LastUpdated: s.lastUpdated,
		Devices:     make(map[string]types.Device),
	}
	snap.Status, _ = s.Resolve(s.statusID)
	if !s.privateMode {
		for id, d := range s.devices {
			snap.Devices[id] = d.Clone()
		}
	}
	return snap
}

// Resolve maps a manual status id onto its catalog entry. Unknown ids yield
// the sentinel item and false; they are never an error.
func (s *Store) Resolve(id int) (types.StatusItem, bool) {
	for _, item := range s.catalog {
		if item.ID == id {
			return item, true
		}
	}
	return types.UnknownStatus(id), false
}

// StatusList returns a copy of the configured catalog.
func (s *Store) StatusList() []types.StatusItem {
	return append([]types.StatusItem(nil), s.catalog...)
}

// Marker returns the current last-updated marker. Channels compare it
// against a previously observed value; inequality means "something changed".
func (s *Store) Marker() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Watch returns a channel closed on the next committed mutation. Callers
// re-arm by calling Watch again after a wakeup.
func (s *Store) Watch() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watch
}

// bump advances the marker and wakes every watcher. Callers hold s.mu.
func (s *Store) bump() {
	now := time.Now()
	if !now.After(s.lastUpdated) {
		now = s.lastUpdated.Add(time.Nanosecond)
	}
	s.lastUpdated = now
	s.dirty = true
	close(s.watch)
	s.watch = make(chan struct{})
}

// SetManualStatus routes a manual status change through the status_updated
// event and commits the event's final value. Returns the dispatched event
// (nil when id equals the current status, which is a silent no-op) and the
// id actually committed.
func (s *Store) SetManualStatus(ctx context.Context, r *http.Request, id int) (*event.StatusUpdatedEvent, int) {
	s.mu.RLock()
	cur := s.statusID
	s.mu.RUnlock()
	if id == cur {
		return nil, cur
	}

	oldStatus, oldExists := s.Resolve(cur)
	newStatus, newExists := s.Resolve(id)
	if !newExists {
		// Unknown ids are stored verbatim and resolved lazily on read.
		newStatus.ID = id
	}
	evt := s.bus.Dispatch(ctx, event.NewStatusUpdated(r, oldExists, oldStatus, newExists, newStatus)).(*event.StatusUpdatedEvent)
	if evt.Intercepted() {
		return evt, cur
	}

	committed := evt.NewStatus.ID
	s.mu.Lock()
	if committed != s.statusID {
		s.statusID = committed
		s.bump()
	}
	s.mu.Unlock()
	s.log.Info().Int("status", committed).Msg("manual status set")
	return evt, committed
}

// UpsertDevice routes a device report through the device_set event and
// merges the final values into the record: absent fields keep their previous
// values, an unknown id creates the record. The marker always bumps; a
// device touch is significant even when the effective values repeat.
func (s *Store) UpsertDevice(ctx context.Context, r *http.Request, req types.DeviceSetRequest) (*event.DeviceSetEvent, error) {
	if req.ID == "" {
		return nil, errMissingDeviceID
	}
	evt := s.bus.Dispatch(ctx, event.NewDeviceSet(r, req)).(*event.DeviceSetEvent)
	if evt.Intercepted() {
		return evt, nil
	}
	if evt.DeviceID == "" {
		return nil, errMissingDeviceID
	}

	s.mu.Lock()
	dev := s.devices[evt.DeviceID]
	if evt.ShowName != nil {
		dev.ShowName = *evt.ShowName
	}
	if evt.Using != nil {
		dev.Using = *evt.Using
	}
	if evt.Status != nil {
		dev.Status = *evt.Status
	}
	if len(evt.Fields) > 0 {
		if dev.Fields == nil {
			dev.Fields = make(map[string]any, len(evt.Fields))
		}
		for k, v := range evt.Fields {
			dev.Fields[k] = v
		}
	}
	dev.LastUpdated = time.Now().Unix()
	s.devices[evt.DeviceID] = dev
	s.bump()
	s.mu.Unlock()
	s.log.Debug().Str("device", evt.DeviceID).Msg("device upserted")
	return evt, nil
}

// RemoveDevice routes a removal through the device_removed event. A missing
// id still succeeds and fires the event with Exists=false; the marker bumps
// only when a record was actually dropped.
func (s *Store) RemoveDevice(ctx context.Context, r *http.Request, id string) *event.DeviceRemovedEvent {
	s.mu.RLock()
	dev, exists := s.devices[id]
	s.mu.RUnlock()
	if exists {
		dev = dev.Clone()
	}
	evt := s.bus.Dispatch(ctx, event.NewDeviceRemoved(r, id, exists, dev)).(*event.DeviceRemovedEvent)
	if evt.Intercepted() {
		return evt
	}

	s.mu.Lock()
	if _, ok := s.devices[evt.DeviceID]; ok {
		delete(s.devices, evt.DeviceID)
		s.bump()
	}
	s.mu.Unlock()
	s.log.Debug().Str("device", evt.DeviceID).Bool("existed", exists).Msg("device removed")
	return evt
}

// ClearDevices routes through the device_cleared event, carrying the prior
// map, then empties the store. Bumps only if anything was cleared.
func (s *Store) ClearDevices(ctx context.Context, r *http.Request) *event.DeviceClearedEvent {
	s.mu.RLock()
	prior := make(map[string]types.Device, len(s.devices))
	for id, d := range s.devices {
		prior[id] = d.Clone()
	}
	s.mu.RUnlock()

	evt := s.bus.Dispatch(ctx, event.NewDeviceCleared(r, prior)).(*event.DeviceClearedEvent)
	if evt.Intercepted() {
		return evt
	}

	s.mu.Lock()
	if len(s.devices) > 0 {
		s.devices = make(map[string]types.Device)
		s.bump()
	}
	s.mu.Unlock()
	s.log.Info().Int("cleared", len(prior)).Msg("devices cleared")
	return evt
}

// SetPrivateMode routes the flag flip through the private_mode_changed
// event. Devices keep updating normally while private; they are only hidden
// from snapshots. Equal values are a silent no-op (nil event).
func (s *Store) SetPrivateMode(ctx context.Context, r *http.Request, on bool) *event.PrivateModeChangedEvent {
	s.mu.RLock()
	cur := s.privateMode
	s.mu.RUnlock()
	if on == cur {
		return nil
	}
	evt := s.bus.Dispatch(ctx, event.NewPrivateModeChanged(r, cur, on)).(*event.PrivateModeChangedEvent)
	if evt.Intercepted() {
		return evt
	}

	s.mu.Lock()
	if s.privateMode != evt.New {
		s.privateMode = evt.New
		s.bump()
	}
	s.mu.Unlock()
	s.log.Info().Bool("private", evt.New).Msg("private mode changed")
	return evt
}

// PluginData returns a copy of the named plugin's private blob.
func (s *Store) PluginData(name string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.pluginData[name]))
	for k, v := range s.pluginData[name] {
		out[k] = v
	}
	return out
}

// SetPluginData replaces the named plugin's private blob. Plugin data is
// persisted opaquely; it never touches the marker.
func (s *Store) SetPluginData(name string, data map[string]any) {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	s.mu.Lock()
	s.pluginData[name] = cp
	s.dirty = true
	s.mu.Unlock()
}
