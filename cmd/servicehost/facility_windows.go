//go:build windows

package main

import (
	"context"
	"log/slog"

	"github.com/next-trace/scg-service-host/adapters/signalsvc"
	"github.com/next-trace/scg-service-host/adapters/winsvc"
	"github.com/next-trace/scg-service-host/contract/svc"
)

// newFacility uses the SCM-backed facility under service supervision and
// falls back to the signal-based one for interactive runs.
func newFacility(name string, logger *slog.Logger) (svc.Facility, func(context.Context) error, svc.SessionDetector) {
	w := winsvc.New(name, logger)
	if w.Interactive() {
		fac := signalsvc.New(logger)

		return fac, fac.Run, winsvc.ConsoleSessions{}
	}

	return w, func(context.Context) error { return w.Run() }, winsvc.ConsoleSessions{}
}
