package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/internal/store"
	"github.com/wan0ge/sleepy/pkg/types"
)

type fakePlugin struct {
	name     string
	min, max Version
	initErr  error
	panics   bool
	inited   *bool
}

func (f *fakePlugin) Name() string                     { return f.name }
func (f *fakePlugin) Requires() (min, max Version)     { return f.min, f.max }
func (f *fakePlugin) Init(h *Host) error {
	if f.panics {
		panic("bad plugin")
	}
	if f.inited != nil {
		*f.inited = true
	}
	return f.initErr
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	bus := event.NewBus(zerolog.Nop())
	st := store.New(zerolog.Nop(), bus, []types.StatusItem{{ID: 0, Name: "awake"}}, "")
	return NewRegistry(RegistryConfig{
		Log:     zerolog.Nop(),
		Version: Version{6, 1, 0},
		Bus:     bus,
		Store:   st,
	})
}

func register(t *testing.T, p *fakePlugin) {
	t.Helper()
	RegisterBuiltin(p.name, func() Plugin { return p })
	t.Cleanup(func() { delete(Builtins, p.name) })
}

func TestLoadAll_FaultsAreIsolated(t *testing.T) {
	r := testRegistry(t)
	var aLoaded, cLoaded bool
	register(t, &fakePlugin{name: "a", inited: &aLoaded})
	register(t, &fakePlugin{name: "b", initErr: errors.New("nope")})
	register(t, &fakePlugin{name: "c", inited: &cLoaded})
	register(t, &fakePlugin{name: "d", panics: true})

	r.LoadAll([]string{"a", "b", "missing", "d", "c"}, nil)

	if !aLoaded || !cLoaded {
		t.Fatalf("good plugins not loaded: a=%v c=%v", aLoaded, cLoaded)
	}
	got := r.Loaded()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("loaded=%v", got)
	}
}

func TestLoadAll_VersionGate(t *testing.T) {
	r := testRegistry(t) // host 6.1.0
	var ok1, ok2 bool
	register(t, &fakePlugin{name: "fits", min: Version{6, 0, 0}, max: Version{7, 0, 0}, inited: &ok1})
	register(t, &fakePlugin{name: "toonew", min: Version{7, 0, 0}})
	register(t, &fakePlugin{name: "tooold", max: Version{6, 0, 0}})
	register(t, &fakePlugin{name: "open", inited: &ok2})

	r.LoadAll([]string{"fits", "toonew", "tooold", "open"}, nil)

	if !ok1 || !ok2 {
		t.Fatalf("in-range plugins not loaded: fits=%v open=%v", ok1, ok2)
	}
	if got := r.Loaded(); len(got) != 2 {
		t.Fatalf("loaded=%v", got)
	}
}

func TestVersionMismatchError(t *testing.T) {
	err := error(versionMismatchError{plugin: "p", host: Version{6, 0, 0}, min: Version{7, 0, 0}})
	if !IsVersionMismatch(err) {
		t.Fatalf("IsVersionMismatch=false")
	}
	if IsVersionMismatch(errors.New("other")) {
		t.Fatalf("false positive")
	}
}

func TestHost_DataIsNamespaced(t *testing.T) {
	r := testRegistry(t)
	var got map[string]any
	reader := &hostProbe{fn: func(h *Host) {
		h.SetData(map[string]any{"k": "v"})
		got = h.Data()
	}}
	RegisterBuiltin("probe", func() Plugin { return reader })
	t.Cleanup(func() { delete(Builtins, "probe") })

	r.LoadAll([]string{"probe"}, nil)
	if got["k"] != "v" {
		t.Fatalf("data=%v", got)
	}
	if d := r.store.PluginData("other"); len(d) != 0 {
		t.Fatalf("namespace leak: %v", d)
	}
}

type hostProbe struct{ fn func(h *Host) }

func (p *hostProbe) Name() string                 { return "probe" }
func (p *hostProbe) Requires() (min, max Version) { return Version{}, Version{} }
func (p *hostProbe) Init(h *Host) error           { p.fn(h); return nil }

func TestHost_TypedHandlerRegistration(t *testing.T) {
	r := testRegistry(t)
	var seen int
	probe := &hostProbe{fn: func(h *Host) {
		On(h, event.StatusUpdated, func(ctx context.Context, e *event.StatusUpdatedEvent) (*event.StatusUpdatedEvent, error) {
			seen++
			return e, nil
		})
	}}
	RegisterBuiltin("probe", func() Plugin { return probe })
	t.Cleanup(func() { delete(Builtins, "probe") })
	r.LoadAll([]string{"probe"}, nil)

	r.bus.Dispatch(context.Background(), event.NewStatusUpdated(nil, true, types.StatusItem{}, true, types.StatusItem{ID: 1}))
	if seen != 1 {
		t.Fatalf("handler ran %d times", seen)
	}
}
