// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded by GreetingLookups
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupInvalid  = "invalid"
	LookupError    = "error"
)

// Cache results recorded by CacheResults
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	GreetingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "greetings_created_total", Help: "Greetings successfully stored"},
	)
	GreetingLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "greeting_lookups_total", Help: "Greeting lookups by result"},
		[]string{"result"},
	)
	IDCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "greeting_id_collisions_total", Help: "Generated identifiers that already existed"},
	)
	CacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "greeting_cache_results_total", Help: "Read cache lookups by result"},
		[]string{"result"},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "greeting_events_published_total", Help: "Domain events by publish outcome"},
		[]string{"event", "outcome"},
	)
)

var registerOnce sync.Once

// MustRegister registers every collector with the default registry.
// Safe to call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal, ReqDuration, InFlight,
			GreetingsCreated, GreetingLookups, IDCollisions,
			CacheResults, EventsPublished,
		)
	})
}
