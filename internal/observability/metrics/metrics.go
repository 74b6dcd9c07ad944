package metrics

import "github.com/prometheus/client_golang/prometheus"

// GateMetrics exposes counters for inbound gate decisions.
type GateMetrics struct {
	decisionsTotal *prometheus.CounterVec
	riskTotal      *prometheus.CounterVec
}

func NewGateMetrics(reg prometheus.Registerer) *GateMetrics {
	m := &GateMetrics{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgate",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Inbound gate decisions by outcome and rejection stage",
		}, []string{"outcome", "stage"}),
		riskTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgate",
			Subsystem: "gate",
			Name:      "risk_total",
			Help:      "Composite risk level of inspected submissions",
		}, []string{"risk"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.decisionsTotal, m.riskTotal)
	return m
}

// ObserveDecision counts one gate decision. stage is empty for accepted
// submissions.
func (m *GateMetrics) ObserveDecision(outcome, stage string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(outcome, stage).Inc()
}

// ObserveRisk counts the merged composite risk of one submission.
func (m *GateMetrics) ObserveRisk(risk string) {
	if m == nil {
		return
	}
	m.riskTotal.WithLabelValues(risk).Inc()
}
