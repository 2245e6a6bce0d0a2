package aspect

import (
	"github.com/agilira/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sghaida/oproxy/proxy"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Metrics records Prometheus metrics for proxied calls.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	opts     options
}

// NewMetrics creates the collectors and registers them with reg. namespace
// prefixes every metric name:
//
//	<namespace>_calls_total{target,method,outcome}
//	<namespace>_call_duration_seconds{target,method}
//	<namespace>_calls_in_flight{target,method}
func NewMetrics(reg prometheus.Registerer, namespace string, opts ...Option) (*Metrics, error) {
	if reg == nil {
		return nil, errors.New(ErrCodeInvalidConfig, "metrics: registerer is required")
	}
	if namespace == "" {
		namespace = "proxy"
	}

	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total number of proxied calls by outcome",
			},
			[]string{"target", "method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Proxied call latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"target", "method"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "calls_in_flight",
				Help:      "Number of proxied calls currently running",
			},
			[]string{"target", "method"},
		),
		opts: newOptions(opts),
	}

	for _, c := range []prometheus.Collector{m.calls, m.duration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "metrics: register collector")
		}
	}
	return m, nil
}

// Config returns the Around hook that records the metrics.
func (m *Metrics) Config() proxy.Config {
	return proxy.Config{
		Around: func(c *proxy.Call, proceed proxy.Proceed) ([]any, error) {
			target := m.opts.target(c)
			inFlight := m.inFlight.WithLabelValues(target, c.Method)
			inFlight.Inc()
			start := m.opts.clock()

			finished := false
			defer func() {
				inFlight.Dec()
				m.duration.WithLabelValues(target, c.Method).Observe(m.opts.since(start).Seconds())
				if !finished {
					m.calls.WithLabelValues(target, c.Method, OutcomePanic).Inc()
				}
			}()

			out, err := proceed()
			finished = true
			outcome := OutcomeOK
			if err != nil {
				outcome = OutcomeError
			}
			m.calls.WithLabelValues(target, c.Method, outcome).Inc()
			return out, err
		},
	}
}
