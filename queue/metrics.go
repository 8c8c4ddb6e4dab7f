package queue

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/threadkit/metric"
)

// queueMetrics exports queue statistics as Prometheus metrics.
type queueMetrics struct {
	depth       prometheus.Gauge
	pushed      prometheus.Counter
	popped      prometheus.Counter
	fullMisses  prometheus.Counter
	emptyMisses prometheus.Counter
}

func newQueueMetrics(reg *metric.MetricsRegistry, prefix, owner string) (*queueMetrics, error) {
	labels := prometheus.Labels{"owner": owner}

	m := &queueMetrics{
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        prefix + "_depth",
			Help:        "Current number of queued messages",
			ConstLabels: labels,
		}),
		pushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        prefix + "_pushed_total",
			Help:        "Messages pushed to the queue",
			ConstLabels: labels,
		}),
		popped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        prefix + "_popped_total",
			Help:        "Messages popped from the queue",
			ConstLabels: labels,
		}),
		fullMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        prefix + "_full_misses_total",
			Help:        "Push attempts that found the queue full",
			ConstLabels: labels,
		}),
		emptyMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        prefix + "_empty_misses_total",
			Help:        "Pop attempts that found the queue empty",
			ConstLabels: labels,
		}),
	}

	component := "queue_" + owner
	if err := reg.RegisterGauge(component, prefix+"_depth", m.depth); err != nil {
		return nil, err
	}
	if err := reg.RegisterCounter(component, prefix+"_pushed_total", m.pushed); err != nil {
		return nil, err
	}
	if err := reg.RegisterCounter(component, prefix+"_popped_total", m.popped); err != nil {
		return nil, err
	}
	if err := reg.RegisterCounter(component, prefix+"_full_misses_total", m.fullMisses); err != nil {
		return nil, err
	}
	if err := reg.RegisterCounter(component, prefix+"_empty_misses_total", m.emptyMisses); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *queueMetrics) recordPush(size int) {
	m.pushed.Inc()
	m.depth.Set(float64(size))
}

func (m *queueMetrics) recordPop(size int) {
	m.popped.Inc()
	m.depth.Set(float64(size))
}

func (m *queueMetrics) recordFullMiss() {
	m.fullMisses.Inc()
}

func (m *queueMetrics) recordEmptyMiss() {
	m.emptyMisses.Inc()
}

func (m *queueMetrics) updateSize(size int) {
	m.depth.Set(float64(size))
}
