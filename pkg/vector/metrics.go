package vector

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the pool collectors, labelled by pool id.
type Metrics struct {
	steps    *prometheus.CounterVec
	resets   *prometheus.CounterVec
	episodes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	envs     *prometheus.GaugeVec
}

// NewMetrics registers the pool collectors with reg. Collectors already
// registered there are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbgym_vector_steps_total",
				Help: "Environment steps taken by vector pools",
			},
			[]string{"pool"},
		),
		resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbgym_vector_resets_total",
				Help: "Environment resets performed by vector pools, including autoresets",
			},
			[]string{"pool"},
		),
		episodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbgym_vector_episodes_finished_total",
				Help: "Episodes that terminated or were truncated",
			},
			[]string{"pool", "reason"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smbgym_vector_step_duration_seconds",
				Help:    "Wall time of one batched step",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"pool"},
		),
		envs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smbgym_vector_envs",
				Help: "Open environments per pool",
			},
			[]string{"pool"},
		),
	}
	var err error
	if m.steps, err = register(reg, m.steps); err != nil {
		return nil, err
	}
	if m.resets, err = register(reg, m.resets); err != nil {
		return nil, err
	}
	if m.episodes, err = register(reg, m.episodes); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, m.latency); err != nil {
		return nil, err
	}
	if m.envs, err = register(reg, m.envs); err != nil {
		return nil, err
	}
	return m, nil
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

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics are registered with prometheus.DefaultRegisterer.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// poolMetrics is a Metrics view bound to one pool id.
type poolMetrics struct {
	m  *Metrics
	id string
}

func (p poolMetrics) observeStep(b Batch, autoreset []bool, seconds float64) {
	steps, resets := 0, 0
	for _, r := range autoreset {
		if r {
			resets++
		} else {
			steps++
		}
	}
	p.m.steps.WithLabelValues(p.id).Add(float64(steps))
	p.m.resets.WithLabelValues(p.id).Add(float64(resets))
	p.m.latency.WithLabelValues(p.id).Observe(seconds)
	for i := range b.Terminateds {
		switch {
		case b.Terminateds[i]:
			p.m.episodes.WithLabelValues(p.id, "terminated").Inc()
		case b.Truncateds[i]:
			p.m.episodes.WithLabelValues(p.id, "truncated").Inc()
		}
	}
}

func (p poolMetrics) observeReset(n int) {
	p.m.resets.WithLabelValues(p.id).Add(float64(n))
}

func (p poolMetrics) setEnvs(n int) {
	p.m.envs.WithLabelValues(p.id).Set(float64(n))
}
