package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chester_tracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests grouped by route, method and status code.",
	}, []string{"route", "method", "status"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chester_tracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests grouped by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chester_tracker",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity write.",
	})

	trackedSecondsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chester_tracker",
		Subsystem: "timer",
		Name:      "tracked_seconds_total",
		Help:      "Elapsed seconds folded into activities by stopped timers.",
	})

	eventPublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chester_tracker",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Number of activity change events that could not be delivered.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(httpRequestsCounter, httpLatency, activityPersistGauge, trackedSecondsCounter, eventPublishFailures)
}

// RecordHTTPRequest observes one served request.
func RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsCounter.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordTrackedSeconds adds the elapsed time of a stopped timer.
func RecordTrackedSeconds(seconds int64) {
	if seconds <= 0 {
		return
	}
	trackedSecondsCounter.Add(float64(seconds))
}

// RecordEventPublishFailure counts an undelivered change event.
func RecordEventPublishFailure(action string) {
	eventPublishFailures.WithLabelValues(action).Inc()
}

// EventPublishFailures exposes the failure counter for one action.
func EventPublishFailures(action string) prometheus.Counter {
	return eventPublishFailures.WithLabelValues(action)
}
