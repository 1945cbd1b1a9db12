package executor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector exports the queue depth, completed tasks and worker count
// of a set of pools as Prometheus metrics.
type PoolCollector struct {
	pools []*Pool

	pending   *prometheus.Desc
	completed *prometheus.Desc
	workers   *prometheus.Desc
}

var _ prometheus.Collector = (*PoolCollector)(nil)

// NewPoolCollector returns a collector for pools. Metric names are prefixed
// with namespace when it is non-empty.
func NewPoolCollector(namespace string, pools ...*Pool) *PoolCollector {
	labels := []string{"pool"}
	return &PoolCollector{
		pools: pools,
		pending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "executor", "pending_tasks"),
			"Tasks queued and not yet picked up by a worker.", labels, nil),
		completed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "executor", "completed_tasks_total"),
			"Tasks run to completion, including those that panicked.", labels, nil),
		workers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "executor", "workers"),
			"Configured worker goroutines.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pending
	ch <- c.completed
	ch <- c.workers
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	for _, p := range c.pools {
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(p.Pending()), p.Name())
		ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(p.Completed()), p.Name())
		ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(p.Workers()), p.Name())
	}
}
