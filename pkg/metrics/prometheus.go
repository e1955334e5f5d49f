package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	AvailabilityChecks prometheus.Counter
	BookingDenials     *prometheus.CounterVec
	SyncRuns           *prometheus.CounterVec
	SyncItems          *prometheus.CounterVec
	SyncRunDuration    prometheus.Histogram
	ChannelAPICalls    prometheus.Counter
	ConflictsRecorded  prometheus.Counter
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AvailabilityChecks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "The total number of availability checks performed",
		}),
		BookingDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_denials_total",
			Help:      "The total number of denied availability checks",
		}, []string{"rule"}),
		SyncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "The total number of channel sync runs by terminal status",
		}, []string{"status"}),
		SyncItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_total",
			Help:      "The total number of processed sync items by outcome",
		}, []string{"outcome"}),
		SyncRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Time taken by channel sync runs",
			Buckets:   prometheus.DefBuckets,
		}),
		ChannelAPICalls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_api_calls_total",
			Help:      "The total number of calls made to the channel manager",
		}),
		ConflictsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_conflicts_total",
			Help:      "The total number of sync conflicts recorded",
		}),
	}
}
