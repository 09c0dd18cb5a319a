package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry bookkeeping.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec

	BookingAttempts   *prometheus.CounterVec
	SlotQueryDuration prometheus.Histogram

	EventsPublished prometheus.Counter
	NotifyFailures  prometheus.Counter
	SubscriberDrops prometheus.Counter
	Subscribers     prometheus.Gauge

	OutboxProcessed prometheus.Counter
	OutboxFailed    prometheus.Counter

	ScheduleCacheHits   prometheus.Counter
	ScheduleCacheMisses prometheus.Counter
}

// New creates and registers all application metrics on the default registry.
func New(namespace string) *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		BookingAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking write attempts by outcome",
		}, []string{"operation", "result"}),
		SlotQueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_query_duration_seconds",
			Help:      "Time spent computing availability for one request",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_published_total",
			Help:      "Booking events handed to the broker",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_event_publish_failures_total",
			Help:      "Booking events that could not be published (data remained durable)",
		}),
		SubscriberDrops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_dropped_events_total",
			Help:      "Events dropped because a subscriber could not keep up",
		}),
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Currently connected event stream subscribers",
		}),
		OutboxProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Outbox events dispatched successfully",
		}),
		OutboxFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Outbox events that exhausted their retries",
		}),
		ScheduleCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_cache_hits_total",
			Help:      "Provider schedule lookups served from cache",
		}),
		ScheduleCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_cache_misses_total",
			Help:      "Provider schedule lookups that hit the repository",
		}),
	}
}

func (m *Metrics) ObserveRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

func (m *Metrics) RecordBooking(operation, result string) {
	if m == nil {
		return
	}
	m.BookingAttempts.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveSlotQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.SlotQueryDuration.Observe(d.Seconds())
}

func (m *Metrics) IncEventsPublished() {
	if m == nil {
		return
	}
	m.EventsPublished.Inc()
}

func (m *Metrics) IncNotifyFailures() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) IncSubscriberDrops() {
	if m == nil {
		return
	}
	m.SubscriberDrops.Inc()
}

func (m *Metrics) AddSubscribers(delta float64) {
	if m == nil {
		return
	}
	m.Subscribers.Add(delta)
}

func (m *Metrics) IncOutboxProcessed() {
	if m == nil {
		return
	}
	m.OutboxProcessed.Inc()
}

func (m *Metrics) IncOutboxFailed() {
	if m == nil {
		return
	}
	m.OutboxFailed.Inc()
}

func (m *Metrics) IncScheduleCacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ScheduleCacheHits.Inc()
	} else {
		m.ScheduleCacheMisses.Inc()
	}
}
