package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PizzaHomicide/crossplay/internal/player"
)

const namespace = "crossplay"

// Metrics records player notifications as prometheus metrics.  Each instance owns its registry so several players
// can be measured side by side.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	ended       *prometheus.CounterVec
	errors      *prometheus.CounterVec
	interaction *prometheus.CounterVec
	state       *prometheus.GaugeVec
	elapsed     prometheus.Gauge
	duration    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Playback state transitions by target state and backend.",
		}, []string{"state", "backend"}),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_ended_total",
			Help:      "Tracks that played to their natural end.",
		}, []string{"backend"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors published by the player.",
		}, []string{"backend"}),
		interaction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interaction_required_total",
			Help:      "Plays that needed a user gesture before starting.",
		}, []string{"backend"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current playback state, 0 otherwise.",
		}, []string{"state"}),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elapsed_seconds",
			Help:      "Elapsed position of the current track.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Duration of the current track, 0 when unknown.",
		}),
	}
	m.registry.MustRegister(
		m.transitions, m.ended, m.errors, m.interaction, m.state, m.elapsed, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.setState(player.StateStopped)
	return m
}

// Observe records one notification.  It has the player.Handler signature.
func (m *Metrics) Observe(n player.Notification) {
	backend := string(n.Backend)
	switch n.Event {
	case player.EventStopped, player.EventLoading, player.EventPlaying, player.EventPaused:
		m.transitions.WithLabelValues(n.State.String(), backend).Inc()
		m.setState(n.State)
		if n.State == player.StateStopped {
			m.elapsed.Set(0)
			m.duration.Set(0)
		}
	case player.EventEnded:
		m.ended.WithLabelValues(backend).Inc()
	case player.EventError:
		m.errors.WithLabelValues(backend).Inc()
	case player.EventInteractionRequired:
		m.interaction.WithLabelValues(backend).Inc()
	case player.EventProgress:
		if n.Progress != nil {
			m.elapsed.Set(float64(n.Progress.ElapsedMS) / 1000)
			m.duration.Set(float64(n.Progress.DurationMS) / 1000)
		}
	}
}

func (m *Metrics) setState(s player.State) {
	for _, candidate := range []player.State{player.StateStopped, player.StateLoading, player.StatePlaying, player.StatePaused} {
		v := 0.0
		if candidate == s {
			v = 1
		}
		m.state.WithLabelValues(candidate.String()).Set(v)
	}
}

// Handler exposes the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
