// Package logger 提供对端可达性测试子系统的统一日志接口
//
// 基于标准库 log/slog 封装，支持通过环境变量按子系统配置级别：
//
//	PEERTEST_LOG_LEVEL: 子系统=级别,子系统=级别,默认级别
//	  示例: peertest.responder=debug,ivfilter=warn,info
//	PEERTEST_LOG_FORMAT: text 或 json（默认 text）
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// config 是从环境变量解析出的日志配置
type config struct {
	defaultLevel    slog.Level
	subsystemLevels map[string]slog.Level
	json            bool
}

var (
	cfgOnce sync.Once
	cfg     *config

	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger = slog.Default()
)

func loadConfig() *config {
	cfgOnce.Do(func() {
		c := &config{
			defaultLevel:    slog.LevelInfo,
			subsystemLevels: make(map[string]slog.Level),
		}
		if s := os.Getenv("PEERTEST_LOG_LEVEL"); s != "" {
			parseLevelConfig(c, s)
		}
		if strings.EqualFold(os.Getenv("PEERTEST_LOG_FORMAT"), "json") {
			c.json = true
		}
		cfg = c
	})
	return cfg
}

func parseLevelConfig(c *config, s string) {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if kv := strings.SplitN(part, "=", 2); len(kv) == 2 {
			if level, ok := parseLevel(kv[1]); ok {
				c.subsystemLevels[strings.TrimSpace(kv[0])] = level
			}
			continue
		}
		if level, ok := parseLevel(part); ok {
			c.defaultLevel = level
		}
	}
}

func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func levelForSubsystem(subsystem string) slog.Level {
	c := loadConfig()
	if l, ok := c.subsystemLevels[subsystem]; ok {
		return l
	}
	return c.defaultLevel
}

// SetOutput 重新创建底层 logger，将输出重定向到 w（测试中用于捕获日志）
func SetOutput(w *os.File) {
	c := loadConfig()
	opts := &slog.HandlerOptions{Level: c.defaultLevel}
	defaultLoggerMu.Lock()
	if c.json {
		defaultLogger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		defaultLogger = slog.New(slog.NewTextHandler(w, opts))
	}
	defaultLoggerMu.Unlock()
}

// SubsystemLogger 按子系统名返回一个日志记录器，级别可通过 PEERTEST_LOG_LEVEL 单独配置
type SubsystemLogger struct {
	subsystem string
	level     slog.Level
}

// Logger 返回指定子系统名的日志记录器
//
// 用法：var log = logger.Logger("nat.peertest.responder")
func Logger(subsystem string) *SubsystemLogger {
	return &SubsystemLogger{subsystem: subsystem, level: levelForSubsystem(subsystem)}
}

func (l *SubsystemLogger) enabled(level slog.Level) bool { return level >= l.level }

func (l *SubsystemLogger) base() *slog.Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger.With("subsystem", l.subsystem)
}

// Debug 输出 Debug 级别日志
func (l *SubsystemLogger) Debug(msg string, args ...any) {
	if l.enabled(slog.LevelDebug) {
		l.base().Debug(msg, args...)
	}
}

// Info 输出 Info 级别日志
func (l *SubsystemLogger) Info(msg string, args ...any) {
	if l.enabled(slog.LevelInfo) {
		l.base().Info(msg, args...)
	}
}

// Warn 输出 Warn 级别日志
func (l *SubsystemLogger) Warn(msg string, args ...any) {
	if l.enabled(slog.LevelWarn) {
		l.base().Warn(msg, args...)
	}
}

// Error 输出 Error 级别日志
func (l *SubsystemLogger) Error(msg string, args ...any) {
	if l.enabled(slog.LevelError) {
		l.base().Error(msg, args...)
	}
}

// DebugContext 带 context 的 Debug 日志
func (l *SubsystemLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	if l.enabled(slog.LevelDebug) {
		l.base().DebugContext(ctx, msg, args...)
	}
}

// resetForTest 清空配置缓存，仅供测试使用
func resetForTest() {
	cfgOnce = sync.Once{}
}
