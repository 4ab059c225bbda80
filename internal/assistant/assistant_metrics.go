package assistant

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for doctor chat.
type Metrics struct {
	ThreadsTotal   prometheus.Counter
	MessagesTotal  *prometheus.CounterVec
	TokensTotal    *prometheus.CounterVec
	ToolCallsTotal *prometheus.CounterVec
	FallbacksTotal *prometheus.CounterVec
}

// NewMetrics registers and returns chat metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ThreadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smilecare_chat_threads_total",
			Help: "Total chat threads opened.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_chat_messages_total",
			Help: "Total chat messages by sender.",
		}, []string{"sender"}),
		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_chat_llm_tokens_total",
			Help: "Total LLM tokens used by chat replies by direction.",
		}, []string{"direction"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_chat_tool_calls_total",
			Help: "Total tool calls made by the chat model.",
		}, []string{"tool", "is_error"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smilecare_chat_fallbacks_total",
			Help: "Total chat replies answered by the fallback responder by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.ThreadsTotal,
		m.MessagesTotal,
		m.TokensTotal,
		m.ToolCallsTotal,
		m.FallbacksTotal,
	)
	return m
}
