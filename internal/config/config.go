// Package config 提供对端可达性测试守护进程的配置管理
//
// 本包采用与教师仓库相同的混合配置模式：主 Config 结构体嵌入所有子配置，
// 每个子配置在独立文件中定义，支持从 JSON 加载/保存。
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 peertestd 的完整配置结构
type Config struct {
	// Network 本地 UDP 监听与 Intro Key 配置
	Network NetworkConfig `json:"network"`

	// Timing 状态机计时器配置
	Timing TimingConfig `json:"timing"`

	// IVFilter 衰减型 IV 重放过滤器配置
	IVFilter IVFilterConfig `json:"iv_filter"`

	// Logging 日志配置
	Logging LoggingConfig `json:"logging"`

	// Metrics Prometheus 指标导出配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建带有所有子配置默认值的 Config
func NewConfig() *Config {
	return &Config{
		Network:  DefaultNetworkConfig(),
		Timing:   DefaultTimingConfig(),
		IVFilter: DefaultIVFilterConfig(),
		Logging:  DefaultLoggingConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// FromJSON 从 JSON 字节解析配置，未指定的字段保留默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 从磁盘上的 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置为格式化的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
