package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/pkg/types"
)

var testCatalog = []types.StatusItem{
	{ID: 0, Name: "awake", Desc: "up", Color: "awake"},
	{ID: 1, Name: "sleeping", Desc: "dnd", Color: "sleeping"},
}

func newTestStore(t *testing.T) (*Store, *event.Bus) {
	t.Helper()
	bus := event.NewBus(zerolog.Nop())
	return New(zerolog.Nop(), bus, testCatalog, ""), bus
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestUpsertDevice_MergesFields(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.UpsertDevice(ctx, nil, types.DeviceSetRequest{ID: "d1", Using: boolp(true)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertDevice(ctx, nil, types.DeviceSetRequest{ID: "d1", Status: strp("coding")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	snap := s.Snapshot()
	d, ok := snap.Devices["d1"]
	if !ok {
		t.Fatalf("device missing: %+v", snap.Devices)
	}
	if !d.Using || d.Status != "coding" {
		t.Fatalf("merge broken: %+v", d)
	}
}

func TestUpsertDevice_AlwaysBumpsMarker(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	req := types.DeviceSetRequest{ID: "d1", Status: strp("idle")}
	if _, err := s.UpsertDevice(ctx, nil, req); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	m1 := s.Marker()
	// Identical touch still bumps.
	if _, err := s.UpsertDevice(ctx, nil, req); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !s.Marker().After(m1) {
		t.Fatalf("marker did not advance on repeated touch")
	}
}

func TestUpsertDevice_MissingID(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.UpsertDevice(context.Background(), nil, types.DeviceSetRequest{}); !IsMissingDeviceID(err) {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestSetManualStatus_UnknownIDResolvesToSentinel(t *testing.T) {
	s, _ := newTestStore(t)
	evt, setTo := s.SetManualStatus(context.Background(), nil, 999)
	if evt == nil || setTo != 999 {
		t.Fatalf("evt=%v setTo=%d", evt, setTo)
	}
	snap := s.Snapshot()
	if snap.Status.ID != -1 || snap.Status.Name != "[unknown]" {
		t.Fatalf("expected sentinel, got %+v", snap.Status)
	}
	if snap.StatusID != 999 {
		t.Fatalf("raw id not stored verbatim: %d", snap.StatusID)
	}
}

func TestSetManualStatus_NoOpWhenUnchanged(t *testing.T) {
	s, _ := newTestStore(t)
	m := s.Marker()
	evt, setTo := s.SetManualStatus(context.Background(), nil, 0)
	if evt != nil || setTo != 0 {
		t.Fatalf("expected silent no-op, evt=%v setTo=%d", evt, setTo)
	}
	if !s.Marker().Equal(m) {
		t.Fatalf("marker moved on no-op")
	}
}

func TestSetManualStatus_BumpsOnlyOnChange(t *testing.T) {
	s, bus := newTestStore(t)
	// Handler rewrites every change back to the current value.
	event.On(bus, event.StatusUpdated, "t", func(ctx context.Context, e *event.StatusUpdatedEvent) (*event.StatusUpdatedEvent, error) {
		e.NewStatus = testCatalog[0]
		return e, nil
	})
	m := s.Marker()
	_, setTo := s.SetManualStatus(context.Background(), nil, 1)
	if setTo != 0 {
		t.Fatalf("rewrite not honored, setTo=%d", setTo)
	}
	if !s.Marker().Equal(m) {
		t.Fatalf("marker moved although committed value did not change")
	}
}

func TestSetManualStatus_Interception(t *testing.T) {
	s, bus := newTestStore(t)
	event.On(bus, event.StatusUpdated, "t", func(ctx context.Context, e *event.StatusUpdatedEvent) (*event.StatusUpdatedEvent, error) {
		e.Intercept(map[string]any{"blocked": true})
		return e, nil
	})
	evt, _ := s.SetManualStatus(context.Background(), nil, 1)
	if evt == nil || !evt.Intercepted() {
		t.Fatalf("expected interception")
	}
	if s.Snapshot().StatusID != 0 {
		t.Fatalf("intercepted mutation still committed")
	}
}

func TestRemoveDevice_NonexistentFiresExistsFalse(t *testing.T) {
	s, _ := newTestStore(t)
	m := s.Marker()
	evt := s.RemoveDevice(context.Background(), nil, "ghost")
	if evt.Exists {
		t.Fatalf("expected Exists=false")
	}
	if !s.Marker().Equal(m) {
		t.Fatalf("marker moved on removing a missing device")
	}
}

func TestRemoveDevice_BumpsWhenRemoved(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.UpsertDevice(ctx, nil, types.DeviceSetRequest{ID: "d1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	m := s.Marker()
	evt := s.RemoveDevice(ctx, nil, "d1")
	if !evt.Exists {
		t.Fatalf("expected Exists=true")
	}
	if !s.Marker().After(m) {
		t.Fatalf("marker did not advance on removal")
	}
	if len(s.Snapshot().Devices) != 0 {
		t.Fatalf("device still present")
	}
}

func TestClearDevices(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	m := s.Marker()
	// Clearing an empty store fires the event but does not bump.
	evt := s.ClearDevices(ctx, nil)
	if len(evt.Devices) != 0 {
		t.Fatalf("expected empty prior map")
	}
	if !s.Marker().Equal(m) {
		t.Fatalf("marker moved clearing empty store")
	}
	if _, err := s.UpsertDevice(ctx, nil, types.DeviceSetRequest{ID: "a"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertDevice(ctx, nil, types.DeviceSetRequest{ID: "b"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	m = s.Marker()
	evt = s.ClearDevices(ctx, nil)
	if len(evt.Devices) != 2 {
		t.Fatalf("prior map len=%d", len(evt.Devices))
	}
	if !s.Marker().After(m) || len(s.Snapshot().Devices) != 0 {
		t.Fatalf("clear did not commit")
	}
}

func TestPrivateMode_HidesDevicesButKeepsUpdating(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if evt := s.SetPrivateMode(ctx, nil, true); evt == nil || evt.New != true {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if _, err := s.UpsertDevice(ctx, nil, types.DeviceSetRequest{ID: "d1", Status: strp("hidden work")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(s.Snapshot().Devices) != 0 {
		t.Fatalf("private snapshot leaked devices")
	}
	if evt := s.SetPrivateMode(ctx, nil, false); evt == nil {
		t.Fatalf("expected event on flip back")
	}
	if len(s.Snapshot().Devices) != 1 {
		t.Fatalf("device lost while private")
	}
	// Setting the same value again is a silent no-op.
	if evt := s.SetPrivateMode(ctx, nil, false); evt != nil {
		t.Fatalf("expected nil event on no-op")
	}
}

func TestWatch_WakesOnMutation(t *testing.T) {
	s, _ := newTestStore(t)
	ch := s.Watch()
	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = s.UpsertDevice(context.Background(), nil, types.DeviceSetRequest{ID: "d1"})
	}()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("watch channel never woke")
	}
}

func TestPluginData_Namespaced(t *testing.T) {
	s, _ := newTestStore(t)
	s.SetPluginData("a", map[string]any{"calls": 1})
	s.SetPluginData("b", map[string]any{"calls": 2})
	if got := s.PluginData("a")["calls"]; got != 1 {
		t.Fatalf("a: %v", got)
	}
	if got := s.PluginData("b")["calls"]; got != 2 {
		t.Fatalf("b: %v", got)
	}
	// Mutating the returned copy does not touch the store.
	d := s.PluginData("a")
	d["calls"] = 99
	if got := s.PluginData("a")["calls"]; got != 1 {
		t.Fatalf("copy leaked: %v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	bus := event.NewBus(zerolog.Nop())
	s := New(zerolog.Nop(), bus, testCatalog, path)
	ctx := context.Background()
	if _, err := s.UpsertDevice(ctx, nil, types.DeviceSetRequest{ID: "d1", Status: strp("coding"), Fields: map[string]any{"song": "x"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	s.SetManualStatus(ctx, nil, 1)
	s.SetPluginData("p", map[string]any{"n": "v"})
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	s2 := New(zerolog.Nop(), bus, testCatalog, path)
	if err := s2.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := s2.Snapshot()
	if snap.StatusID != 1 {
		t.Fatalf("status not restored: %d", snap.StatusID)
	}
	if d, ok := snap.Devices["d1"]; !ok || d.Status != "coding" {
		t.Fatalf("device not restored: %+v", snap.Devices)
	}
	if got := s2.PluginData("p")["n"]; got != "v" {
		t.Fatalf("plugin data not restored: %v", got)
	}
	if !s2.Marker().Equal(s.Marker()) {
		t.Fatalf("marker not restored")
	}
}

func TestLoad_MissingFileIsFreshStart(t *testing.T) {
	s := New(zerolog.Nop(), event.NewBus(zerolog.Nop()), testCatalog, filepath.Join(t.TempDir(), "nope.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}
