package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrforge_generations_total",
		Help: "Artifacts generated, by data type and format.",
	}, []string{"type", "format"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qrforge_generation_duration_seconds",
		Help:    "Time spent in a single generate request.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	bestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrforge_best_effort_failures_total",
		Help: "Side-channel writes that failed without failing the request.",
	}, []string{"operation"})

	sweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrforge_cleanup_sweeps_total",
		Help: "Cleanup sweeps, by outcome and trigger.",
	}, []string{"result", "trigger"})

	sweepDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrforge_cleanup_deleted_total",
		Help: "Objects and rows removed by cleanup, by category.",
	}, []string{"category"})

	sweepBytesFreed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrforge_cleanup_bytes_freed_total",
		Help: "Bytes of content storage freed by cleanup.",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qrforge_cleanup_duration_seconds",
		Help:    "Duration of a cleanup sweep.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})

	presetCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrforge_preset_cache_hits_total",
		Help: "Style preset lookups served from the in-memory cache.",
	})

	presetCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrforge_preset_cache_misses_total",
		Help: "Style preset lookups that went to the metadata store.",
	})
)
