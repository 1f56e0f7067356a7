package peertest

import "github.com/prometheus/client_golang/prometheus"

// metrics 持有 TestInitiator 对外暴露的 Prometheus 指标：每种终态一个计数器
type metrics struct {
	outcomes *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peertest",
			Subsystem: "initiator",
			Name:      "outcomes_total",
			Help:      "Peer reachability test outcomes by terminal status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *metrics) observe(status Status) {
	m.outcomes.WithLabelValues(status.String()).Inc()
}

// responderMetrics 持有 TestResponder 对外暴露的 Prometheus 指标：按分派结果
// 分类的事件计数器
type responderMetrics struct {
	events *prometheus.CounterVec
}

func newResponderMetrics(reg prometheus.Registerer) *responderMetrics {
	m := &responderMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peertest",
			Subsystem: "responder",
			Name:      "events_total",
			Help:      "Peer reachability test responder dispatch outcomes.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.events)
	}
	return m
}

func (m *responderMetrics) observe(result string) {
	m.events.WithLabelValues(result).Inc()
}
