package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports poll cycle outcomes and the current delay to Prometheus.
// One Metrics value can be shared by many pollers; they are told apart by
// the poller label.
type Metrics struct {
	cycles  *prometheus.CounterVec
	delay   *prometheus.GaugeVec
	running *prometheus.GaugeVec
}

// NewMetrics registers the poller collectors on registry.
// If registry is nil, uses the default Prometheus registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poller_cycles_total",
				Help: "Total number of poll cycles by outcome",
			},
			[]string{"poller", "outcome"},
		),

		delay: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "poller_delay_seconds",
				Help: "Delay before the next poll cycle in seconds",
			},
			[]string{"poller"},
		),

		running: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "poller_running",
				Help: "Whether the poller loop is running (0 or 1)",
			},
			[]string{"poller"},
		),
	}
}

func (m *Metrics) observe(ev Event) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(ev.Poller, ev.Kind.String()).Inc()
	m.delay.WithLabelValues(ev.Poller).Set(ev.Delay.Seconds())
}

func (m *Metrics) setRunning(name string, running bool) {
	if m == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	m.running.WithLabelValues(name).Set(v)
}
