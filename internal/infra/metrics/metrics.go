package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"unisync/internal/app"
)

// Prometheus exposes the attendance workflow counters.
type Prometheus struct {
	resolutions *prometheus.CounterVec
	submissions *prometheus.CounterVec
	inserted    prometheus.Counter
	sweeps      *prometheus.CounterVec
}

// NewPrometheus registers the collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unisync",
			Name:      "session_resolutions_total",
			Help:      "Session resolutions by resulting state.",
		}, []string{"state"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unisync",
			Name:      "attendance_submissions_total",
			Help:      "Attendance submissions by outcome.",
		}, []string{"outcome"}),
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unisync",
			Name:      "attendance_records_inserted_total",
			Help:      "Attendance records written.",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unisync",
			Name:      "session_sweep_runs_total",
			Help:      "Session sweep runs by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.resolutions, m.submissions, m.inserted, m.sweeps)
	return m
}

func (m *Prometheus) ObserveResolution(state app.ResolutionState) {
	m.resolutions.WithLabelValues(string(state)).Inc()
}

func (m *Prometheus) ObserveSubmission(outcome string, inserted int) {
	m.submissions.WithLabelValues(outcome).Inc()
	if inserted > 0 {
		m.inserted.Add(float64(inserted))
	}
}

// ObserveSweep counts one scheduler pass; result is "ok" or "error".
func (m *Prometheus) ObserveSweep(result string) {
	m.sweeps.WithLabelValues(result).Inc()
}
