package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for urgency assessments.
type Metrics struct {
	StartedTotal   prometheus.Counter
	AnswersTotal   *prometheus.CounterVec
	ResetsTotal    prometheus.Counter
	CompletedTotal *prometheus.CounterVec
	Score          prometheus.Histogram
	Duration       prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smilecare_assessments_started_total",
			Help: "Total urgency assessments started.",
		}),
		AnswersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_assessment_answers_total",
			Help: "Total answers recorded by value.",
		}, []string{"answer"}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smilecare_assessment_resets_total",
			Help: "Total assessments reset to the first question.",
		}),
		CompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_assessments_completed_total",
			Help: "Total classified assessments by urgency tier.",
		}, []string{"tier"}),
		Score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smilecare_assessment_score",
			Help:    "Urgency score of classified assessments.",
			Buckets: prometheus.LinearBuckets(0, 2, 12), // 0 .. 22
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smilecare_assessment_duration_seconds",
			Help:    "Time from start to result of an assessment in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}),
	}

	reg.MustRegister(
		m.StartedTotal,
		m.AnswersTotal,
		m.ResetsTotal,
		m.CompletedTotal,
		m.Score,
		m.Duration,
	)

	return m
}
