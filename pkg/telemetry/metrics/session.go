package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"switchboard-hq/switchboard/pkg/rendezvous"
)

// SessionMetrics tracks the session directory and turn outcomes.
//
// Metrics:
//   - switchboard_sessions_active: sessions currently in the directory
//   - switchboard_sessions_created_total: sessions admitted
//   - switchboard_sessions_paired_total: sessions that completed handshake
//   - switchboard_sessions_closed_total: sessions closed, by reason
//   - switchboard_turns_total: completed turns
//   - switchboard_turn_timeouts_total: timed-out waits, by phase
//   - switchboard_session_conflicts_total: rejected concurrent requests
type SessionMetrics struct {
	active         prometheus.Gauge
	createdTotal   prometheus.Counter
	pairedTotal    prometheus.Counter
	closedTotal    *prometheus.CounterVec
	turnsTotal     prometheus.Counter
	timeoutsTotal  *prometheus.CounterVec
	conflictsTotal prometheus.Counter
}

// NewSessionMetrics creates and registers session metrics with the registry.
func NewSessionMetrics(registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently in the directory",
		}),

		createdTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions admitted to the directory",
		}),

		pairedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_paired_total",
			Help:      "Total number of sessions whose handshake completed",
		}),

		closedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions closed, by reason",
		}, []string{"reason"}),

		turnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "turns_total",
			Help:      "Total number of completed turn exchanges",
		}),

		timeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "turn_timeouts_total",
			Help:      "Total number of timed-out waits, by phase",
		}, []string{"phase"}),

		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "session_conflicts_total",
			Help:      "Total number of requests rejected with session_conflict",
		}),
	}

	registry.MustRegister(
		sm.active,
		sm.createdTotal,
		sm.pairedTotal,
		sm.closedTotal,
		sm.turnsTotal,
		sm.timeoutsTotal,
		sm.conflictsTotal,
	)
	return sm
}

// SessionCreated implements rendezvous.EventSink.
func (sm *SessionMetrics) SessionCreated(string) {
	sm.createdTotal.Inc()
	sm.active.Inc()
}

// SessionPaired implements rendezvous.EventSink.
func (sm *SessionMetrics) SessionPaired(string) {
	sm.pairedTotal.Inc()
}

// SessionClosed implements rendezvous.EventSink.
func (sm *SessionMetrics) SessionClosed(_ string, reason rendezvous.CloseReason) {
	sm.closedTotal.WithLabelValues(string(reason)).Inc()
	sm.active.Dec()
}

// RecordTurn counts one completed turn exchange.
func (sm *SessionMetrics) RecordTurn() {
	sm.turnsTotal.Inc()
}

// RecordTimeout counts one timed-out wait. phase is "handshake" or "turn".
func (sm *SessionMetrics) RecordTimeout(phase string) {
	sm.timeoutsTotal.WithLabelValues(phase).Inc()
}

// RecordConflict counts one session_conflict rejection.
func (sm *SessionMetrics) RecordConflict() {
	sm.conflictsTotal.Inc()
}
