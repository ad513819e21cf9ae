package plugin

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/internal/store"
)

// versionMismatchError is raised when a plugin's declared range excludes the
// host version. It skips that plugin only.
type versionMismatchError struct {
	plugin   string
	host     Version
	min, max Version
}

func (e versionMismatchError) Error() string {
	if e.max != (Version{}) && !e.host.Less(e.max) {
		return fmt.Sprintf("plugin %s needs host <%s, have %s", e.plugin, e.max, e.host)
	}
	return fmt.Sprintf("plugin %s needs host >=%s, have %s", e.plugin, e.min, e.host)
}

// IsVersionMismatch reports whether err is a plugin/host version conflict.
func IsVersionMismatch(err error) bool {
	_, ok := err.(versionMismatchError)
	return ok
}

// Registry owns the loaded plugin set.
type Registry struct {
	log     zerolog.Logger
	version Version
	bus     *event.Bus
	store   *store.Store
	cards   *Cards
	configs map[string]map[string]any
	loaded  []Plugin
}

// RegistryConfig carries everything plugins may need at load time.
type RegistryConfig struct {
	Log     zerolog.Logger
	Version Version
	Bus     *event.Bus
	Store   *store.Store
	// PluginConfigs maps plugin name to its config table.
	PluginConfigs map[string]map[string]any
}

func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		log:     cfg.Log,
		version: cfg.Version,
		bus:     cfg.Bus,
		store:   cfg.Store,
		cards:   NewCards(),
		configs: cfg.PluginConfigs,
	}
}

// Cards exposes the collected UI fragments.
func (r *Registry) Cards() *Cards { return r.cards }

// Loaded returns the names of successfully loaded plugins, in load order.
func (r *Registry) Loaded() []string {
	out := make([]string, 0, len(r.loaded))
	for _, p := range r.loaded {
		out = append(out, p.Name())
	}
	return out
}

// LoadAll loads the enabled plugins in order. Any fault — unknown name,
// version mismatch, Init error or panic — is logged and skips that plugin,
// leaving the ones already loaded active. router may be nil when the HTTP
// layer is absent (tests); plugin routes are then unavailable.
func (r *Registry) LoadAll(enabled []string, router chi.Router) {
	for _, name := range enabled {
		if err := r.loadOne(name, router); err != nil {
			if IsVersionMismatch(err) {
				r.log.Warn().Str("plugin", name).Msg(err.Error())
			} else {
				r.log.Warn().Err(err).Str("plugin", name).Msg("plugin load failed, skipping")
			}
			continue
		}
	}
	if len(r.loaded) == 0 {
		r.log.Info().Msg("no plugins enabled")
		return
	}
	r.log.Info().Strs("plugins", r.Loaded()).Msgf("%d plugin(s) enabled", len(r.loaded))
}

func (r *Registry) loadOne(name string, router chi.Router) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin panic: %v", rec)
		}
	}()

	factory, ok := Builtins[name]
	if !ok {
		return fmt.Errorf("unknown plugin %q", name)
	}
	p := factory()
	if p.Name() != name {
		return fmt.Errorf("plugin %q reports name %q", name, p.Name())
	}

	min, max := p.Requires()
	if min != (Version{}) && r.version.Less(min) {
		return versionMismatchError{plugin: name, host: r.version, min: min}
	}
	if max != (Version{}) && !r.version.Less(max) {
		return versionMismatchError{plugin: name, host: r.version, max: max}
	}

	host := &Host{
		name:  name,
		log:   r.log.With().Str("plugin", name).Logger(),
		bus:   r.bus,
		store: r.store,
		cards: r.cards,
		conf:  r.configs[name],
	}
	if router != nil {
		sub := chi.NewRouter()
		router.Mount("/plugin/"+name, sub)
		host.route = sub
	}
	if err := p.Init(host); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	r.loaded = append(r.loaded, p)
	return nil
}
