package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the call engine.
type EngineMetrics struct {
	turnsTotal     *prometheus.CounterVec
	fallbackTotal  *prometheus.CounterVec
	guardrailTotal *prometheus.CounterVec
	tierHits       *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradeline",
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Total caller turns processed",
		}, []string{"action", "status"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradeline",
			Subsystem: "engine",
			Name:      "fallback_decisions_total",
			Help:      "Deterministic fallback decisions by trigger",
		}, []string{"trigger"}),
		guardrailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradeline",
			Subsystem: "engine",
			Name:      "guardrail_triggers_total",
			Help:      "Guardrail rewrites of model output",
		}, []string{"check"}),
		tierHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradeline",
			Subsystem: "knowledge",
			Name:      "tier_results_total",
			Help:      "Knowledge tier invocations by tier and outcome",
		}, []string{"tier", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tradeline",
			Subsystem: "engine",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"purpose"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.fallbackTotal, m.guardrailTotal, m.tierHits, m.llmLatency)
	return m
}

func (m *EngineMetrics) ObserveTurn(action, status string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(action, status).Inc()
}

func (m *EngineMetrics) ObserveFallback(trigger string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(trigger).Inc()
}

func (m *EngineMetrics) ObserveGuardrail(check string) {
	if m == nil {
		return
	}
	m.guardrailTotal.WithLabelValues(check).Inc()
}

func (m *EngineMetrics) ObserveTier(tier string, outcome string) {
	if m == nil {
		return
	}
	m.tierHits.WithLabelValues(tier, outcome).Inc()
}

func (m *EngineMetrics) ObserveLLMLatency(purpose string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(purpose).Observe(seconds)
}
