package config

import "time"

// TimingConfig 配置对端可达性测试状态机的计时器
type TimingConfig struct {
	// RetransmitInterval 是 ContinueTest 重传节拍的间隔
	RetransmitInterval Duration `json:"retransmit_interval"`

	// TestTimeout 是 Alice 角色一次测试的整体截止时间
	TestTimeout Duration `json:"test_timeout"`

	// CharlieLifetime 是本节点作为 Charlie 时，一个 nonce 在环中的存活时长
	CharlieLifetime Duration `json:"charlie_lifetime"`
}

// DefaultTimingConfig 返回默认计时参数：5s / 30s / 10s
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{
		RetransmitInterval: Duration(5 * time.Second),
		TestTimeout:        Duration(30 * time.Second),
		CharlieLifetime:    Duration(10 * time.Second),
	}
}

// Validate 修正非法配置为默认值
func (c *TimingConfig) Validate() error {
	def := DefaultTimingConfig()
	if c.RetransmitInterval <= 0 {
		c.RetransmitInterval = def.RetransmitInterval
	}
	if c.TestTimeout <= 0 {
		c.TestTimeout = def.TestTimeout
	}
	if c.CharlieLifetime <= 0 {
		c.CharlieLifetime = def.CharlieLifetime
	}
	return nil
}
