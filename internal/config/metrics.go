package config

// MetricsConfig 配置 Prometheus 指标导出
type MetricsConfig struct {
	// Enabled 是否启动 /metrics HTTP 端点
	Enabled bool `json:"enabled"`

	// ListenAddr 是指标端点监听地址
	ListenAddr string `json:"listen_addr"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:9654",
	}
}

// Validate 校验指标配置
func (c *MetricsConfig) Validate() error {
	if c.Enabled && c.ListenAddr == "" {
		c.ListenAddr = DefaultMetricsConfig().ListenAddr
	}
	return nil
}
