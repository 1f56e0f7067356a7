package ivfilter

import "github.com/prometheus/client_golang/prometheus"

// Metrics 持有 IV 校验器对外暴露的 Prometheus 指标
//
// 这是 spec.md §1 中被列为外部协作方的"统计聚合"在本仓库里的具体落地：
// spec 只要求一个 duplicate 计数器，这里额外暴露 accepted 计数器以便观察吞吐。
type Metrics struct {
	duplicateIV prometheus.Counter
	acceptedIV  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duplicateIV: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peertest",
			Subsystem: "ivfilter",
			Name:      "duplicate_iv_total",
			Help:      "Number of tunnel IVs rejected as replays.",
		}),
		acceptedIV: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peertest",
			Subsystem: "ivfilter",
			Name:      "accepted_iv_total",
			Help:      "Number of tunnel IVs accepted as novel.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.duplicateIV, m.acceptedIV)
	}
	return m
}
