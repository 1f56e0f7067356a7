package peertest

import "time"

// Config 配置对端可达性测试状态机的各项计时器（spec.md §5「Timeouts」）
type Config struct {
	// RetransmitInterval 是 ContinueTest 重传节拍的间隔
	RetransmitInterval time.Duration

	// TestTimeout 是 Alice 角色一次测试的整体截止时间
	TestTimeout time.Duration

	// CharlieLifetime 是本节点作为 Charlie 时，一个 nonce 在环中的存活时长
	CharlieLifetime time.Duration
}

// DefaultConfig 返回 spec.md §5 规定的默认计时参数：5s / 30s / 10s
func DefaultConfig() Config {
	return Config{
		RetransmitInterval: 5 * time.Second,
		TestTimeout:        30 * time.Second,
		CharlieLifetime:    10 * time.Second,
	}
}

// Validate 修正非法配置为默认值，镜像教师仓库 nat/holepunch.Config 的校验风格
func (c *Config) Validate() {
	if c.RetransmitInterval <= 0 {
		c.RetransmitInterval = 5 * time.Second
	}
	if c.TestTimeout <= 0 {
		c.TestTimeout = 30 * time.Second
	}
	if c.CharlieLifetime <= 0 {
		c.CharlieLifetime = 10 * time.Second
	}
}
