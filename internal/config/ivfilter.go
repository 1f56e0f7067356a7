package config

import (
	"fmt"
	"time"
)

// IVFilterConfig 配置衰减型 IV 重放过滤器（spec.md §8「IV replay filter」）
type IVFilterConfig struct {
	// HalfLife 是过滤器遗忘旧成员的半衰期
	HalfLife Duration `json:"half_life"`

	// ExpectedInsertions 是半衰期窗口内预期插入量，用于确定过滤器容量
	ExpectedInsertions int `json:"expected_insertions"`

	// FalsePositiveRate 是目标假阳性率
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// DefaultIVFilterConfig 返回默认配置：10 分钟半衰期，20 万预期插入，千分之一假阳性率
func DefaultIVFilterConfig() IVFilterConfig {
	return IVFilterConfig{
		HalfLife:           Duration(10 * time.Minute),
		ExpectedInsertions: 200_000,
		FalsePositiveRate:  0.001,
	}
}

// Validate 校验 IV 过滤器配置
func (c *IVFilterConfig) Validate() error {
	if c.HalfLife <= 0 {
		return fmt.Errorf("config: iv_filter.half_life must be positive")
	}
	if c.ExpectedInsertions <= 0 {
		return fmt.Errorf("config: iv_filter.expected_insertions must be positive")
	}
	if c.FalsePositiveRate <= 0 || c.FalsePositiveRate >= 1 {
		return fmt.Errorf("config: iv_filter.false_positive_rate must be in (0,1)")
	}
	return nil
}
