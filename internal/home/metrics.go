package home

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus counters for home mutations.
type Metrics struct {
	TogglesTotal       *prometheus.CounterVec
	ModeChangesTotal   *prometheus.CounterVec
	ClimateReports     prometheus.Counter
	ItemMutationsTotal *prometheus.CounterVec
	NoteMutationsTotal *prometheus.CounterVec
	PublishFailures    prometheus.Counter
}

// NewMetrics creates and registers the home metrics once per process.
//
// Metrics:
//   - hearth_toggles_total{device}
//   - hearth_mode_changes_total{mode}
//   - hearth_climate_reports_total
//   - hearth_item_mutations_total{action}
//   - hearth_note_mutations_total{action}
//   - hearth_event_publish_failures_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TogglesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hearth_toggles_total",
					Help: "Total number of device toggles",
				},
				[]string{"device"},
			),
			ModeChangesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hearth_mode_changes_total",
					Help: "Total number of scene mode changes",
				},
				[]string{"mode"},
			),
			ClimateReports: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hearth_climate_reports_total",
					Help: "Total number of accepted climate sensor reports",
				},
			),
			ItemMutationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hearth_item_mutations_total",
					Help: "Total number of inventory mutations",
				},
				[]string{"action"}, // "create", "update", "delete"
			),
			NoteMutationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hearth_note_mutations_total",
					Help: "Total number of notice board mutations",
				},
				[]string{"action"},
			),
			PublishFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hearth_event_publish_failures_total",
					Help: "Total number of home events that failed to publish",
				},
			),
		}
	})

	return globalMetrics
}
