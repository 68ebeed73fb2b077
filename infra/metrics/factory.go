package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/datagrid/core/metrics"
)

// Registry is the registerer used by sinks built from configuration.
var Registry = prometheus.NewRegistry()

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.Sink, error) {
		s, err := NewPromSinkWithRegistry(Registry)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
