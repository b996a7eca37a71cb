// Package metrics provides Prometheus instrumentation for sync runs.
//
// cissync is a one-shot batch job, so instead of serving a scrape
// endpoint it pushes the final run totals to a Pushgateway.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ppiankov/cissync/internal/syncer"
)

// Collector translates a sync result into Prometheus gauge values.
type Collector struct {
	processed    prometheus.Gauge
	created      prometheus.Gauge
	skipped      prometheus.Gauge
	failed       prometheus.Gauge
	syncDuration prometheus.Gauge
	lastRun      prometheus.Gauge
}

// NewCollector creates and registers metrics on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		processed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cissync",
			Name:      "policies_processed",
			Help:      "Policies considered in the last sync run.",
		}),
		created: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cissync",
			Name:      "policies_created",
			Help:      "Policies created in the last sync run.",
		}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cissync",
			Name:      "policies_skipped",
			Help:      "Policies skipped as already existing in the last sync run.",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cissync",
			Name:      "policies_failed",
			Help:      "Policy creations that failed in the last sync run.",
		}),
		syncDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cissync",
			Name:      "sync_duration_seconds",
			Help:      "Duration of the last sync run in seconds.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cissync",
			Name:      "last_run_timestamp",
			Help:      "Unix timestamp of the last sync run start.",
		}),
	}

	reg.MustRegister(c.processed)
	reg.MustRegister(c.created)
	reg.MustRegister(c.skipped)
	reg.MustRegister(c.failed)
	reg.MustRegister(c.syncDuration)
	reg.MustRegister(c.lastRun)

	return c
}

// Update sets all metric values from the given result.
func (c *Collector) Update(res syncer.Result) {
	c.processed.Set(float64(res.Processed))
	c.created.Set(float64(res.Created))
	c.skipped.Set(float64(res.Skipped))
	c.failed.Set(float64(res.Failed))
	c.syncDuration.Set(res.Duration.Seconds())
	if !res.StartedAt.IsZero() {
		c.lastRun.Set(float64(res.StartedAt.Unix()))
	}
}

// Push sends everything registered on reg to a Pushgateway under the
// given job name.
func Push(ctx context.Context, gatewayURL, job string, reg *prometheus.Registry) error {
	if err := push.New(gatewayURL, job).Gatherer(reg).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}
