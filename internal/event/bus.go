package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var dispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sleepy",
		Subsystem: "events",
		Name:      "dispatch_total",
		Help:      "Total events dispatched through the bus",
	},
	[]string{"identity", "outcome"},
)

func init() {
	prometheus.MustRegister(dispatchTotal)
}

// Handler processes one event and returns the event to hand to the next
// handler in line; returning the input unchanged is the common case. A
// returned error (or a panic) discards the handler's effect but never aborts
// the request that triggered dispatch.
type Handler func(ctx context.Context, e Event) (Event, error)

// Bus is the ordered handler registry. Registration order is dispatch order
// and handlers are never removed; plugins register once at load time.
type Bus struct {
	log zerolog.Logger

	mu       sync.RWMutex
	handlers map[Identity][]namedHandler
}

type namedHandler struct {
	owner string
	fn    Handler
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log, handlers: make(map[Identity][]namedHandler)}
}

// Register appends a handler to the identity's dispatch list. owner is a
// label for fault logs, typically the plugin name.
func (b *Bus) Register(id Identity, owner string, h Handler) {
	b.mu.Lock()
	b.handlers[id] = append(b.handlers[id], namedHandler{owner: owner, fn: h})
	b.mu.Unlock()
	b.log.Debug().Str("event", string(id)).Str("owner", owner).Msg("handler registered")
}

// Dispatch runs every handler registered for the event's identity, in
// registration order, on the calling goroutine. Each handler receives the
// event as left by its predecessor. Dispatch stops early once an
// interceptable event reports interception; non-interceptable events always
// run the full list. The final event is returned to the call site, which
// must honor Intercepted().
func (b *Bus) Dispatch(ctx context.Context, e Event) Event {
	id := e.Identity()
	b.mu.RLock()
	handlers := b.handlers[id]
	b.mu.RUnlock()
	for _, h := range handlers {
		// Each handler works on a clone; a fault discards its edits and the
		// pre-fault event carries on to the next handler.
		next, err := b.invoke(ctx, h, e.Clone())
		if err != nil {
			b.log.Warn().Err(err).Str("event", string(id)).Str("owner", h.owner).Msg("event handler fault, skipping")
			dispatchTotal.WithLabelValues(string(id), "handler_fault").Inc()
			continue
		}
		if next != nil {
			e = next
		}
		if e.Meta().Intercepted() {
			dispatchTotal.WithLabelValues(string(id), "intercepted").Inc()
			return e
		}
	}
	dispatchTotal.WithLabelValues(string(id), "completed").Inc()
	return e
}

// invoke isolates a single handler call so a panic is reported as an error
// and the pre-fault event survives.
func (b *Bus) invoke(ctx context.Context, h namedHandler, e Event) (next Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.fn(ctx, e)
}

// On registers a handler with a concrete variant signature. Events of the
// wrong dynamic type pass through untouched; that only happens if an identity
// is registered against the wrong variant, so it is logged once per dispatch.
func On[E Event](b *Bus, id Identity, owner string, fn func(ctx context.Context, e E) (E, error)) {
	b.Register(id, owner, func(ctx context.Context, e Event) (Event, error) {
		te, ok := e.(E)
		if !ok {
			return e, fmt.Errorf("event %s: unexpected variant %T", id, e)
		}
		out, err := fn(ctx, te)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}
