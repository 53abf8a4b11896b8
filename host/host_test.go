package host_test

import (
	"io"
	"log/slog"
	"testing"

	cbus "github.com/next-trace/scg-service-host/contract/bus"
	"github.com/next-trace/scg-service-host/contract/svc"
	"github.com/next-trace/scg-service-host/host"
	"github.com/next-trace/scg-service-host/lifecycle"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_NewRequiresFacility(t *testing.T) {
	if _, err := host.New(nil, nil, discard()); err == nil {
		t.Fatalf("expected error")
	}
}

// Full walk through the host lifecycle over the in-memory facility.
func Test_InMemoryLifecycle(t *testing.T) {
	h, fac, err := host.NewInMemory(discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var events []string

	h.Bus.On(cbus.Wildcard, func(args ...any) {
		events = append(events, args[0].(string))
	})

	worker, err := h.Registry.GetOrCreate("worker", nil)
	if err != nil {
		t.Fatalf("module: %v", err)
	}

	pings := 0
	worker.On("worker.ping", func(...any) { pings++ })

	if err := h.Controller.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	worker.Emit("ping")
	fac.Deliver(svc.SessionChange, svc.SessionUnlock)
	fac.Deliver(svc.Stop, "")

	if pings != 1 {
		t.Fatalf("want 1 ping, got %d", pings)
	}

	// Named listeners run before wildcard listeners: the stop handler on
	// "svc-stop" emits "stop" during the nested dispatch, so the wildcard
	// observes "stop" before the outer "svc-stop".
	want := []string{"start", "worker.ping", "svc-sessionchange", "stop", "svc-stop"}
	if len(events) != len(want) {
		t.Fatalf("want %v, got %v", want, events)
	}

	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("want %v, got %v", want, events)
		}
	}

	if h.Controller.State() != lifecycle.Stopped {
		t.Fatalf("want Stopped, got %s", h.Controller.State())
	}
}
