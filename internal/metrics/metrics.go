// internal/metrics/metrics.go
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/parmair-bridge/internal/poller"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

const namespace = "parmair"

// Write results.
const (
	ResultOK          = "ok"
	ResultError       = "error"
	ResultInvalid     = "invalid"
	ResultUnconfirmed = "unconfirmed"
)

// Metrics exports coordinator activity. It implements poller.Observer.
type Metrics struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	failures prometheus.Gauge
	state    *prometheus.GaugeVec
	values   *prometheus.GaugeVec
	writes   *prometheus.CounterVec
}

var _ poller.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of poll cycles.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Poll cycles failed in a row.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "register_value",
			Help:      "Last decoded register value.",
		}, []string{"key"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Register writes by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.cycles, m.duration, m.failures, m.state, m.values, m.writes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	m.setState(status.Disconnected)
	return m, nil
}

func (m *Metrics) CycleDone(res poller.CycleResult) {
	m.duration.Observe(res.Duration.Seconds())
	m.failures.Set(float64(res.Health.ConsecutiveFailures))

	if res.Err != nil {
		m.cycles.WithLabelValues(ResultError).Inc()
		return
	}
	m.cycles.WithLabelValues(ResultOK).Inc()

	// withheld registers keep their last exported value
	for key, v := range res.Snapshot.Values() {
		m.values.WithLabelValues(key).Set(v)
	}
}

func (m *Metrics) StateChanged(_, to status.ConnectionState) {
	m.setState(to)
}

func (m *Metrics) setState(to status.ConnectionState) {
	for _, s := range status.States {
		v := 0.0
		if s == to {
			v = 1
		}
		m.state.WithLabelValues(s.String()).Set(v)
	}
}

func (m *Metrics) WriteDone(_ string, err error) {
	m.writes.WithLabelValues(WriteResult(err)).Inc()
}

// WriteResult classifies a write error for the result label.
func WriteResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, poller.ErrValidation):
		return ResultInvalid
	case errors.Is(err, poller.ErrWriteUnconfirmed):
		return ResultUnconfirmed
	default:
		return ResultError
	}
}
