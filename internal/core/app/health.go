package app

import (
	"context"
	"time"

	"pycleaner/internal/shared/observability"
)

func (a *App) recordRun(err error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.lastRun = time.Now().UTC()
	a.lastErr = err
}

// Health reports "up" until a classification fails, and "degraded" while the
// most recent run is a failure.
func (a *App) Health(_ context.Context) observability.HealthStatus {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()

	status := observability.HealthStatus{Status: "up", LastRun: a.lastRun}
	if a.lastErr != nil {
		status.Status = "degraded"
		status.LastError = a.lastErr.Error()
	}
	return status
}
