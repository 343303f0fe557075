package app

import (
	"context"
	"log/slog"
	"time"

	"pycleaner/internal/core/config"
	"pycleaner/internal/core/watcher"
	"pycleaner/internal/engine/graph"
	"pycleaner/internal/shared/observability"
	"pycleaner/internal/shared/util"
)

// RunFunc receives the outcome of every classification made while watching.
type RunFunc func(*graph.Classification, error)

// Watch classifies once, then again after every debounced batch of Python
// changes until ctx is done. Re-runs are throttled to
// watch.max_runs_per_minute. A non-empty configPath is watched as well and
// reloaded into the App on change. With observability enabled the metrics
// and health endpoints are served for the duration.
func (a *App) Watch(ctx context.Context, configPath string, onResult RunFunc) error {
	cfg := a.Config()
	paths := a.Paths()

	if cfg.Observability.Enabled {
		server := observability.NewServer(cfg.Observability.Address, a.Health)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				slog.Warn("failed to stop observability server", "error", err)
			}
		}()
	}

	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files, func(changed []string) {
		slog.Debug("python files changed", "count", len(changed))
		notify()
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch([]string{paths.ProjectRoot}); err != nil {
		return err
	}

	if configPath != "" {
		cw := config.NewWatcher(configPath, func(next *config.Config) {
			if err := a.Reload(next); err != nil {
				slog.Warn("rejected reloaded configuration", "error", err)
				return
			}
			w.SetDebounce(next.Watch.Debounce)
			notify()
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config watcher unavailable", "path", configPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	limiter := util.NewPerMinuteLimiter(cfg.Watch.MaxRunsPerMinute)
	run := func() {
		result, err := a.Classify(ctx)
		if ctx.Err() != nil {
			return
		}
		onResult(result, err)
	}

	slog.Info("watching for changes", "root", paths.ProjectRoot)
	limiter.Allow(1)
	run()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			if !limiter.Allow(1) {
				slog.Info("re-classification throttled", "max_runs_per_minute", cfg.Watch.MaxRunsPerMinute)
				if err := limiter.Wait(ctx, 1); err != nil {
					return nil
				}
			}
			run()
		}
	}
}
