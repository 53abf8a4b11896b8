//go:build !windows

package main

import (
	"context"
	"log/slog"

	"github.com/next-trace/scg-service-host/adapters/signalsvc"
	"github.com/next-trace/scg-service-host/contract/svc"
)

// newFacility picks the signal-based facility on platforms without a native
// service manager integration. There is no session detector here; session
// synthesis only applies under Windows service supervision.
func newFacility(_ string, logger *slog.Logger) (svc.Facility, func(context.Context) error, svc.SessionDetector) {
	fac := signalsvc.New(logger)

	return fac, fac.Run, nil
}
