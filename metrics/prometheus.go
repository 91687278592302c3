// Package metrics reports cache and mutation activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/campaign-cache/types"
)

var _ types.Metrics = (*Prometheus)(nil)

// Prometheus implements types.Metrics with one counter per event.
type Prometheus struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     prometheus.Counter
	refetches     prometheus.Counter
	invalidations prometheus.Counter
	cancellations prometheus.Counter
	rollbacks     prometheus.Counter
}

/*
NewPrometheus creates the counters under namespace and registers them on reg.
It fails if reg already holds counters with the same names.
*/
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query_cache",
			Name:      name,
			Help:      help,
		})
	}

	p := &Prometheus{
		hits:          counter("hits_total", "Reads served from a fresh entry."),
		misses:        counter("misses_total", "Reads that found nothing or a stale entry."),
		evictions:     counter("evictions_total", "Inactive entries dropped by the GC or the capacity bound."),
		refetches:     counter("refetches_total", "Background revalidations started on read."),
		invalidations: counter("invalidations_total", "Entries marked stale by invalidation."),
		cancellations: counter("cancellations_total", "In-flight fetches superseded before they settled."),
		rollbacks:     counter("rollbacks_total", "Failed mutations whose speculative value was rolled back."),
	}

	for _, c := range []prometheus.Collector{
		p.hits, p.misses, p.evictions, p.refetches, p.invalidations, p.cancellations, p.rollbacks,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Hit()        { p.hits.Inc() }
func (p *Prometheus) Miss()       { p.misses.Inc() }
func (p *Prometheus) Eviction()   { p.evictions.Inc() }
func (p *Prometheus) Refetch()    { p.refetches.Inc() }
func (p *Prometheus) Invalidate() { p.invalidations.Inc() }
func (p *Prometheus) Cancel()     { p.cancellations.Inc() }
func (p *Prometheus) Rollback()   { p.rollbacks.Inc() }
