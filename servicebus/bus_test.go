package servicebus_test

import (
	"io"
	"log/slog"
	"testing"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
	"github.com/next-trace/scg-service-host/servicebus"
)

func newBus() *servicebus.Bus {
	return servicebus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_EmitOrderAndArgs(t *testing.T) {
	b := newBus()

	var calls []string

	b.On("ping", func(args ...any) { calls = append(calls, "first") })
	b.On("ping", func(args ...any) { calls = append(calls, "second") })
	b.On("ping", func(args ...any) {
		if len(args) != 2 || args[0] != 1 || args[1] != "two" {
			t.Fatalf("unexpected args: %v", args)
		}

		calls = append(calls, "third")
	})

	b.Emit("ping", 1, "two")

	if len(calls) != 3 || calls[0] != "first" || calls[1] != "second" || calls[2] != "third" {
		t.Fatalf("want registration order, got %v", calls)
	}
}

func Test_EmitOnlyMatchingName(t *testing.T) {
	b := newBus()

	hit := 0
	b.On("a", func(...any) { hit++ })

	b.Emit("b")
	b.Emit("a")

	if hit != 1 {
		t.Fatalf("want 1 call, got %d", hit)
	}
}

func Test_WildcardReceivesEventNameFirst(t *testing.T) {
	b := newBus()

	var got [][]any

	b.On(cbus.Wildcard, func(args ...any) {
		got = append(got, args)
	})

	b.Emit("one", 1)
	b.Emit("two")
	b.Emit("three", "x", "y")

	if len(got) != 3 {
		t.Fatalf("want 3 calls, got %d", len(got))
	}

	if got[0][0] != "one" || got[0][1] != 1 {
		t.Fatalf("unexpected first call: %v", got[0])
	}

	if got[1][0] != "two" || len(got[1]) != 1 {
		t.Fatalf("unexpected second call: %v", got[1])
	}

	if got[2][0] != "three" || got[2][1] != "x" || got[2][2] != "y" {
		t.Fatalf("unexpected third call: %v", got[2])
	}
}

func Test_NamedListenersRunBeforeWildcard(t *testing.T) {
	b := newBus()

	var order []string

	b.On(cbus.Wildcard, func(...any) { order = append(order, "wild") })
	b.On("e", func(...any) { order = append(order, "named") })

	b.Emit("e")

	if len(order) != 2 || order[0] != "named" || order[1] != "wild" {
		t.Fatalf("want named before wildcard, got %v", order)
	}
}

func Test_PanickingListenerDoesNotStopDispatch(t *testing.T) {
	b := newBus()

	var calls []string

	b.On("boom", func(...any) { calls = append(calls, "before") })
	b.On("boom", func(...any) { panic("listener failure") })
	b.On("boom", func(...any) { calls = append(calls, "after") })

	// Must not propagate to the emitter.
	b.Emit("boom")

	if len(calls) != 2 || calls[1] != "after" {
		t.Fatalf("later listeners must still run, got %v", calls)
	}
}

func Test_SnapshotAtDispatch(t *testing.T) {
	b := newBus()

	late := 0
	b.On("e", func(...any) {
		b.On("e", func(...any) { late++ })
	})

	b.Emit("e")

	if late != 0 {
		t.Fatalf("listener registered during dispatch must not see in-flight event")
	}

	b.Emit("e")

	if late != 1 {
		t.Fatalf("want late listener on next emit, got %d", late)
	}
}

func Test_OffStopsDeliveryAndIsIdempotent(t *testing.T) {
	b := newBus()

	hit := 0
	off := b.On("e", func(...any) { hit++ })

	b.Emit("e")
	off()
	off()
	b.Emit("e")

	if hit != 1 {
		t.Fatalf("want 1 call after off, got %d", hit)
	}

	if got := b.ListenerCount("e"); got != 0 {
		t.Fatalf("want 0 listeners, got %d", got)
	}
}

func Test_UnregisterDuringDispatchKeepsSnapshot(t *testing.T) {
	b := newBus()

	var calls []string

	var offSecond func()

	b.On("e", func(...any) {
		calls = append(calls, "first")
		offSecond()
	})
	offSecond = b.On("e", func(...any) { calls = append(calls, "second") })

	b.Emit("e")

	// The snapshot taken at Emit still includes the second listener.
	if len(calls) != 2 || calls[1] != "second" {
		t.Fatalf("snapshot must survive unregistration, got %v", calls)
	}

	calls = nil
	b.Emit("e")

	if len(calls) != 1 || calls[0] != "first" {
		t.Fatalf("second listener must be gone on next emit, got %v", calls)
	}
}

func Test_ReentrantEmit(t *testing.T) {
	b := newBus()

	var order []string

	b.On("outer", func(...any) {
		order = append(order, "outer")
		b.Emit("inner")
	})
	b.On("inner", func(...any) { order = append(order, "inner") })

	b.Emit("outer")

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func Test_NilListenerIsIgnored(t *testing.T) {
	b := newBus()

	off := b.On("e", nil)
	off()

	b.Emit("e")

	if got := b.ListenerCount("e"); got != 0 {
		t.Fatalf("nil listener must not register, got %d", got)
	}
}
