package config

import "fmt"

// LoggingConfig 配置结构化日志输出
//
// Level 使用与 PEERTEST_LOG_LEVEL 环境变量相同的语法：
// "subsystem=level,subsystem=level,defaultLevel"。本结构只做校验与默认值填充；
// internal/util/logger 只读取 PEERTEST_LOG_LEVEL / PEERTEST_LOG_FORMAT 环境变量，
// peertestd 不会把 Level 与 Format 应用到日志记录器上。
type LoggingConfig struct {
	// Level 是默认及按子系统覆盖的日志级别配置
	Level string `json:"level"`

	// Format 是日志输出格式："text" 或 "json"
	Format string `json:"format"`
}

// DefaultLoggingConfig 返回默认日志配置
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 校验日志配置
func (c *LoggingConfig) Validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	switch c.Format {
	case "", "text":
		c.Format = "text"
	case "json":
	default:
		return fmt.Errorf("config: logging.format must be \"text\" or \"json\", got %q", c.Format)
	}
	return nil
}
