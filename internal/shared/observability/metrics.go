package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ClassifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pycleaner_classify_seconds",
		Help:    "Time spent on one full classification run.",
		Buckets: prometheus.DefBuckets,
	})

	FilesInspectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pycleaner_files_inspected_total",
		Help: "Total number of files whose imports were extracted.",
	})

	ImportsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pycleaner_imports_resolved_total",
		Help: "Imported names processed, by resolution outcome.",
	}, []string{"outcome"})

	LibraryFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pycleaner_library_files",
		Help: "Number of library files found by the last classification.",
	})

	ScriptFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pycleaner_script_files",
		Help: "Number of script files found by the last classification.",
	})

	WatchEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pycleaner_watch_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
