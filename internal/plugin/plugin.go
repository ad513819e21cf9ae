// Package plugin loads the configured extension set. Plugins are compiled-in
// units selected by name in the config; each registers event handlers,
// mounts routes under /plugin/<name>/, contributes UI fragments and owns a
// private data blob the store persists opaquely. A fault while loading one
// plugin never aborts the others.
package plugin

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/internal/store"
)

// Version is a semantic version triple.
type Version [3]int

func (v Version) String() string { return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2]) }

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}

// Plugin is implemented by every extension. Name must match the key used in
// the config's plugins.enabled list and plugin.<name> table.
type Plugin interface {
	Name() string
	// Requires returns the host version range [min, max) the plugin
	// supports. A zero max means "no upper bound"; a zero min means "any".
	Requires() (min, max Version)
	// Init wires the plugin into the host: event handlers, routes, cards.
	Init(h *Host) error
}

// Factory constructs a fresh plugin instance.
type Factory func() Plugin

// Builtins is the explicit registration table: every available plugin is
// listed here and the config selects which ones load, in order.
var Builtins = map[string]Factory{}

// RegisterBuiltin adds a plugin constructor to the table. Called from the
// plugin implementations' init functions.
func RegisterBuiltin(name string, f Factory) {
	Builtins[name] = f
}

// Host is the application context handed to each plugin at load time. It is
// constructed once per plugin and scopes data access to that plugin's name.
type Host struct {
	name  string
	log   zerolog.Logger
	bus   *event.Bus
	store *store.Store
	cards *Cards
	route chi.Router
	conf  map[string]any
}

// Log returns a logger tagged with the plugin name.
func (h *Host) Log() zerolog.Logger { return h.log }

// Config returns the plugin's table from the config file (may be empty).
func (h *Host) Config() map[string]any { return h.conf }

// Store exposes the shared state store.
func (h *Host) Store() *store.Store { return h.store }

// On registers an event handler owned by this plugin.
func On[E event.Event](h *Host, id event.Identity, fn func(ctx context.Context, e E) (E, error)) {
	event.On(h.bus, id, h.name, fn)
}

// Register registers an untyped event handler owned by this plugin.
func (h *Host) Register(id event.Identity, fn event.Handler) {
	h.bus.Register(id, h.name, fn)
}

// Data returns the plugin's private blob.
func (h *Host) Data() map[string]any { return h.store.PluginData(h.name) }

// SetData replaces the plugin's private blob.
func (h *Host) SetData(data map[string]any) { h.store.SetPluginData(h.name, data) }

// Route mounts handlers under /plugin/<name>/. Nil when the HTTP layer is
// not attached (tests).
func (h *Host) Route() chi.Router { return h.route }

// AddIndexCard appends a fragment provider to the named index card slot.
func (h *Host) AddIndexCard(cardID string, content func() string) {
	h.cards.addIndexCard(cardID, content)
}

// AddPanelCard sets the named admin-panel card (unique per id).
func (h *Host) AddPanelCard(cardID, title string, content func() string) {
	h.cards.addPanelCard(cardID, title, h.name, content)
}

// AddIndexInject appends raw markup injected into the index page.
func (h *Host) AddIndexInject(content func() string) { h.cards.addIndexInject(content) }

// AddPanelInject appends raw markup injected into the admin panel.
func (h *Host) AddPanelInject(content func() string) { h.cards.addPanelInject(content) }
