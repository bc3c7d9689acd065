// Package metrics exposes the prometheus counters and gauges the core
// exports for observability, following the registration idiom of
// internal/httputil/rate_limiting.go: package-level CounterVec variables,
// registered exactly once via sync.Once + prometheus.MustRegister. The
// in-flight gauge is a plain atomic counter and is not registered with
// prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stateres",
			Subsystem: "core",
			Name:      "resolutions_total",
			Help:      "Total number of state resolutions run, labelled by outcome.",
		},
		[]string{"outcome"},
	)
	conflictedSlotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stateres",
			Subsystem: "core",
			Name:      "conflicted_slots_total",
			Help:      "Total number of state slots found conflicted across all resolutions.",
		},
		[]string{"room_version"},
	)
	eventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stateres",
			Subsystem: "core",
			Name:      "events_dropped_total",
			Help:      "Total number of conflicted events dropped for failing authorization during replay.",
		},
		[]string{"event_type"},
	)
)

var registerOnce sync.Once

func init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(resolutionsTotal, conflictedSlotsTotal, eventsDroppedTotal)
	})
}

// inFlightResolutions is a lock-free gauge: Resolve increments it on entry
// and decrements on every exit path, so it never needs a mutex to stay
// consistent under concurrent callers (spec.md §5).
var inFlightResolutions atomic.Int64

// ObserveResolutionStart marks the beginning of a resolution and returns a
// func to call on its completion, recording outcome ("ok" or "error") and
// updating the in-flight gauge.
func ObserveResolutionStart() (done func(outcome string)) {
	inFlightResolutions.Inc()
	return func(outcome string) {
		inFlightResolutions.Dec()
		resolutionsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveConflictedSlots records how many state slots a resolution found
// conflicted, labelled by the room version being resolved.
func ObserveConflictedSlots(roomVersion string, count int) {
	conflictedSlotsTotal.WithLabelValues(roomVersion).Add(float64(count))
}

// ObserveEventDropped records an event dropped during authorization replay.
func ObserveEventDropped(eventType string) {
	eventsDroppedTotal.WithLabelValues(eventType).Inc()
}

// InFlightResolutions returns the current number of resolutions in progress,
// for the debug HTTP surface's status endpoint.
func InFlightResolutions() int64 {
	return inFlightResolutions.Load()
}
