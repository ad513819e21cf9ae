package event

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wan0ge/sleepy/pkg/types"
)

func testBus() *Bus { return NewBus(zerolog.Nop()) }

func TestDispatch_InterceptStopsLaterHandlers(t *testing.T) {
	b := testBus()
	var after int
	On(b, StatusUpdated, "first", func(ctx context.Context, e *StatusUpdatedEvent) (*StatusUpdatedEvent, error) {
		e.Intercept("blocked")
		return e, nil
	})
	On(b, StatusUpdated, "second", func(ctx context.Context, e *StatusUpdatedEvent) (*StatusUpdatedEvent, error) {
		after++
		return e, nil
	})
	evt := b.Dispatch(context.Background(), NewStatusUpdated(nil, true, types.StatusItem{ID: 0}, true, types.StatusItem{ID: 1}))
	if !evt.Meta().Intercepted() {
		t.Fatalf("expected interception")
	}
	if got := evt.Meta().Interception(); got != "blocked" {
		t.Fatalf("interception payload = %v", got)
	}
	if after != 0 {
		t.Fatalf("handler after interception ran %d times", after)
	}
}

func TestDispatch_NonInterceptableRunsAllHandlers(t *testing.T) {
	b := testBus()
	var ran int
	for i := 0; i < 3; i++ {
		On(b, StreamDisconnected, "p", func(ctx context.Context, e *StreamDisconnectedEvent) (*StreamDisconnectedEvent, error) {
			ran++
			e.Intercept("ignored")
			return e, nil
		})
	}
	evt := b.Dispatch(context.Background(), NewStreamDisconnected(nil))
	if ran != 3 {
		t.Fatalf("ran=%d, want 3", ran)
	}
	if evt.Meta().Intercepted() {
		t.Fatalf("non-interceptable event reported interception")
	}
}

func TestDispatch_HandlerErrorIsIsolated(t *testing.T) {
	b := testBus()
	On(b, StatusUpdated, "bad", func(ctx context.Context, e *StatusUpdatedEvent) (*StatusUpdatedEvent, error) {
		e.NewStatus = types.StatusItem{ID: 99} // must be discarded with the error
		return e, errors.New("boom")
	})
	On(b, StatusUpdated, "good", func(ctx context.Context, e *StatusUpdatedEvent) (*StatusUpdatedEvent, error) {
		e.NewStatus.Name = "rewritten"
		return e, nil
	})
	in := NewStatusUpdated(nil, true, types.StatusItem{ID: 0}, true, types.StatusItem{ID: 1, Name: "orig"})
	out := b.Dispatch(context.Background(), in).(*StatusUpdatedEvent)
	if out.NewStatus.ID != 1 || out.NewStatus.Name != "rewritten" {
		t.Fatalf("unexpected final status: %+v", out.NewStatus)
	}
}

func TestDispatch_HandlerPanicIsIsolated(t *testing.T) {
	b := testBus()
	var after bool
	On(b, DeviceSet, "panicky", func(ctx context.Context, e *DeviceSetEvent) (*DeviceSetEvent, error) {
		panic("oops")
	})
	On(b, DeviceSet, "ok", func(ctx context.Context, e *DeviceSetEvent) (*DeviceSetEvent, error) {
		after = true
		return e, nil
	})
	b.Dispatch(context.Background(), NewDeviceSet(nil, types.DeviceSetRequest{ID: "d1"}))
	if !after {
		t.Fatalf("handler after panic did not run")
	}
}

func TestDispatch_ProgressiveRewrite(t *testing.T) {
	b := testBus()
	On(b, StatusUpdated, "veto", func(ctx context.Context, e *StatusUpdatedEvent) (*StatusUpdatedEvent, error) {
		if e.NewStatus.ID == 123 {
			e.NewStatus = types.StatusItem{ID: 1, Name: "substitute"}
		}
		return e, nil
	})
	On(b, StatusUpdated, "tag", func(ctx context.Context, e *StatusUpdatedEvent) (*StatusUpdatedEvent, error) {
		e.NewStatus.Desc = "seen:" + e.NewStatus.Name
		return e, nil
	})
	out := b.Dispatch(context.Background(), NewStatusUpdated(nil, true, types.StatusItem{}, true, types.StatusItem{ID: 123})).(*StatusUpdatedEvent)
	if out.NewStatus.ID != 1 || out.NewStatus.Desc != "seen:substitute" {
		t.Fatalf("rewrite chain broken: %+v", out.NewStatus)
	}
}

func TestDispatch_NoHandlersReturnsEvent(t *testing.T) {
	b := testBus()
	in := NewDeviceCleared(nil, nil)
	if out := b.Dispatch(context.Background(), in); out != Event(in) {
		t.Fatalf("expected the input event back")
	}
}
