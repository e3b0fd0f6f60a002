package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes executor state to prometheus. Collect reads the
// ExecContext without locking, so scrape between frames (or accept slightly
// torn gauges), same as any snapshot-style collector.
type Collector struct {
	exec *ExecContext

	tasksReady       *prometheus.Desc
	tasksBlocked     *prometheus.Desc
	pipelinesRunning *prometheus.Desc
	tasksCompleted   *prometheus.Desc
	enqueueCycles    *prometheus.Desc
}

func NewCollector(exec *ExecContext) *Collector {
	return &Collector{
		exec: exec,

		tasksReady: prometheus.NewDesc(
			"osp_tasks_ready",
			"Tasks currently in the ready queue",
			nil, nil,
		),
		tasksBlocked: prometheus.NewDesc(
			"osp_tasks_blocked",
			"Tasks queued but waiting on required stages",
			nil, nil,
		),
		pipelinesRunning: prometheus.NewDesc(
			"osp_pipelines_running",
			"Pipelines currently mid-run",
			nil, nil,
		),
		tasksCompleted: prometheus.NewDesc(
			"osp_tasks_completed_total",
			"Total task completions recorded by the executor",
			nil, nil,
		),
		enqueueCycles: prometheus.NewDesc(
			"osp_enqueue_cycles_total",
			"Total advance sub-cycles run by the executor",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tasksReady
	ch <- c.tasksBlocked
	ch <- c.pipelinesRunning
	ch <- c.tasksCompleted
	ch <- c.enqueueCycles
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	running := 0
	for pl := range c.exec.PlData {
		if c.exec.PlData[pl].Running {
			running++
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.tasksReady,
		prometheus.GaugeValue,
		float64(len(c.exec.TasksQueuedRun)),
	)
	ch <- prometheus.MustNewConstMetric(
		c.tasksBlocked,
		prometheus.GaugeValue,
		float64(len(c.exec.TasksQueuedBlocked)),
	)
	ch <- prometheus.MustNewConstMetric(
		c.pipelinesRunning,
		prometheus.GaugeValue,
		float64(running),
	)
	ch <- prometheus.MustNewConstMetric(
		c.tasksCompleted,
		prometheus.CounterValue,
		float64(c.exec.CompletedTotal),
	)
	ch <- prometheus.MustNewConstMetric(
		c.enqueueCycles,
		prometheus.CounterValue,
		float64(c.exec.EnqueueCycles),
	)
}
