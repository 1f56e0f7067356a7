package ivfilter

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// KeySize 是 IV 的固定长度，对应 spec.md §3「IV entry」
const KeySize = 16

// Validator 是 spec.md §4.3「IVValidator」的实现：一个计数重复、暴露
// accept/reject 决策的薄策略层，建立在 decayingBloom 之上。
type Validator struct {
	filter  *decayingBloom
	metrics *Metrics
}

// New 构建一个 IV 校验器
//
// halflife_ms=600000 对应 BloomConfig.HalfLife 默认值，key_size 固定为 16
// （spec.md §6：`new(halflife_ms=600000, key_size=16)`）。
func New(cfg BloomConfig, clk clock.Clock, reg prometheus.Registerer) *Validator {
	return &Validator{
		filter:  newDecayingBloom(cfg, clk),
		metrics: newMetrics(reg),
	}
}

// ReceiveIV 插入一个 16 字节 IV，返回 true 表示接受（此前未见过），false 表示
// 重复（计入 duplicate 计数器，但不作为错误抛出——spec.md §7「Duplicate IV」）。
func (v *Validator) ReceiveIV(iv []byte) bool {
	dup := v.filter.Add(iv)
	if dup {
		v.metrics.duplicateIV.Inc()
		return false
	}
	v.metrics.acceptedIV.Inc()
	return true
}

// Stop 释放校验器持有的后台资源
func (v *Validator) Stop() {
	v.filter.Stop()
}
