package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threatguard_events_total",
	Help: "Number of platform events processed, by event type",
}, []string{"type"})

var EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threatguard_events_dropped_total",
	Help: "Events dropped before scoring, by reason",
}, []string{"reason"})

var Punishments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threatguard_punishments_total",
	Help: "Punishment decisions handed to the executor",
}, []string{"punishment"})

var PlatformCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threatguard_platform_calls_total",
	Help: "Platform API calls made through the guard, by operation and outcome",
}, []string{"op", "outcome"})

var Lockdowns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threatguard_lockdown_transitions_total",
	Help: "Lockdown triggers and unlocks",
}, []string{"transition"})

var ActiveLockdowns = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "threatguard_active_lockdowns",
	Help: "Communities currently locked",
})

var TrackedActors = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "threatguard_tracked_actors",
	Help: "Actors holding threat entries after the last decay sweep",
})

var ConfigCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "threatguard_config_cache_total",
	Help: "Community config cache lookups",
}, []string{"result"})

var PipelineLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "threatguard_pipeline_seconds",
	Help:    "Time from event arrival to punishment applied",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
}, []string{"type"})
