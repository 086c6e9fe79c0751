package authapi

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes.
type Metrics struct {
	Events *prometheus.CounterVec
}

// NewMetrics builds the auth counters and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pedeai_auth_events_total",
				Help: "Auth endpoint outcomes by event and result.",
			},
			[]string{"event", "result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Events)
	}
	return m
}

func (m *Metrics) inc(event, result string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(event, result).Inc()
}
