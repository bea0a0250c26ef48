package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All metrics are low-cardinality: event types, rule names, detector
// names. Never zone/incident/camera IDs as labels.

var (
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_events_published_total",
			Help: "Detection events published to the bus by event type",
		},
		[]string{"event_type"},
	)

	EventsDedupedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_events_deduped_total",
			Help: "Duplicate detection events dropped before aggregation",
		},
	)

	PlansBuiltTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_plans_built_total",
			Help: "Incident plans built by recommended action",
		},
		[]string{"action"},
	)

	ValidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_validation_total",
			Help: "Validator outcomes",
		},
		[]string{"status"},
	)

	ViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_violations_total",
			Help: "Individual hard-rule violations reported",
		},
	)

	AlertsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_alerts_emitted_total",
			Help: "Alerts compiled and broadcast",
		},
	)

	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_alerts_suppressed_total",
			Help: "Validated alerts suppressed by zone cooldown",
		},
	)

	DetectorCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detector_cycles_total",
			Help: "Completed detector check cycles",
		},
		[]string{"detector"},
	)

	DetectorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detector_errors_total",
			Help: "Detector cycles skipped due to errors",
		},
		[]string{"detector"},
	)

	GallerySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchlist_gallery_size",
			Help: "Entries in the current gallery snapshot",
		},
	)

	GalleryReloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchlist_gallery_reloads_total",
			Help: "Gallery snapshot reloads",
		},
	)
)
