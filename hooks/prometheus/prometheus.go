// Package prometheus exports tagcache events as Prometheus metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/tagcache"
)

// Default histogram buckets for operation latency (in seconds).
var defaultBuckets = []float64{
	.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1,
}

// Hooks implements tagcache.Hooks. Observing only touches pre-registered
// collectors, so it is safe to install without an async wrapper.
type Hooks struct {
	opsTotal      *prometheus.CounterVec
	opDuration    *prometheus.HistogramVec
	extendedTotal prometheus.Counter
	rejectedTotal prometheus.Counter
	corruptTotal  prometheus.Counter
}

var _ tagcache.Hooks = (*Hooks)(nil)

// New registers the tagcache collectors on reg.
func New(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tagcache_operations_total",
			Help: "Total number of cache operations by outcome",
		}, []string{"op", "super", "outcome"}),

		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tagcache_operation_duration_seconds",
			Help:    "Cache operation latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"op"}),

		extendedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagcache_race_extensions_total",
			Help: "Expired entries kept alive for the race-condition window",
		}),

		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagcache_rejected_writes_total",
			Help: "Writes the provider refused under pressure",
		}),

		corruptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagcache_corrupt_entries_total",
			Help: "Entries or payloads that failed to decode",
		}),
	}

	reg.MustRegister(
		h.opsTotal,
		h.opDuration,
		h.extendedTotal,
		h.rejectedTotal,
		h.corruptTotal,
	)
	return h
}

func (h *Hooks) Observe(ev tagcache.Event) {
	h.opsTotal.WithLabelValues(string(ev.Op), string(ev.Super), outcome(ev)).Inc()
	h.opDuration.WithLabelValues(string(ev.Op)).Observe(ev.Duration.Seconds())
	if ev.Extended && ev.Op == tagcache.OpFetch {
		h.extendedTotal.Inc()
	}
	if ev.Rejected {
		h.rejectedTotal.Inc()
	}
	if ev.Corrupt {
		h.corruptTotal.Inc()
	}
}

func outcome(ev tagcache.Event) string {
	if ev.Err != nil {
		return "error"
	}
	switch ev.Op {
	case tagcache.OpRead, tagcache.OpReadMulti, tagcache.OpExist, tagcache.OpFetch:
		switch {
		case ev.Hit:
			return "hit"
		case ev.Stale:
			return "stale"
		default:
			return "miss"
		}
	}
	return "ok"
}
