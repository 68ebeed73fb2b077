package metrics

import (
	"errors"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	coremetrics "github.com/kilianp07/datagrid/core/metrics"
)

// PromSink records persistence activity in Prometheus metrics.
type PromSink struct {
	ops        *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	recoveries *prometheus.CounterVec
	grids      *prometheus.CounterVec
}

// NewPromSinkWithRegistry registers the metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered under the same
// names are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ops, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datagrid_persistence_operations_total",
		Help: "Persistence operations performed by models",
	}, []string{"op", "class", "success"}))
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datagrid_persistence_duration_seconds",
		Help:    "Duration of persistence operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "class"}))
	if err != nil {
		return nil, err
	}
	recoveries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datagrid_provider_recoveries_total",
		Help: "Replacements of persistence providers after a failure",
	}, []string{"class", "success"}))
	if err != nil {
		return nil, err
	}
	grids, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datagrid_grids_created_total",
		Help: "Grids built by the grid factory",
	}, []string{"grid_type", "variant"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{ops: ops, latency: latency, recoveries: recoveries, grids: grids}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPersistence counts the operation and observes its duration.
func (s *PromSink) RecordPersistence(ev coremetrics.PersistenceEvent) error {
	s.ops.WithLabelValues(ev.Op, ev.Class, strconv.FormatBool(ev.Err == nil)).Inc()
	s.latency.WithLabelValues(ev.Op, ev.Class).Observe(ev.Duration.Seconds())
	return nil
}

// RecordRecovery counts provider replacements.
func (s *PromSink) RecordRecovery(ev coremetrics.RecoveryEvent) error {
	s.recoveries.WithLabelValues(ev.Class, strconv.FormatBool(ev.RecoveryOK)).Inc()
	return nil
}

// RecordGrid counts grid constructions.
func (s *PromSink) RecordGrid(ev coremetrics.GridEvent) error {
	s.grids.WithLabelValues(ev.GridType, ev.Variant).Inc()
	return nil
}

// WriteText writes every metric gathered by g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
