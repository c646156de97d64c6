package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package logger wraps a process-wide zap logger.
// Call Init early during startup; before that, helpers fall back to a no-op
// logger so library code can log unconditionally.

var (
	mu  sync.RWMutex
	log *zap.Logger = zap.NewNop()
)

// Init builds the global logger. Level is case-insensitive (debug, info,
// warn, error); anything else means info. environment == "production"
// selects the JSON production config, everything else the console config.
func Init(level, environment, service string) error {
	var lvl zapcore.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return err
	}

	mu.Lock()
	log = built
	mu.Unlock()
	zap.ReplaceGlobals(built)
	return nil
}

// L returns the global logger for structured call sites.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Sync flushes buffered entries. Safe to call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = log.Sync()
}

func Debugf(format string, v ...interface{}) { L().Sugar().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { L().Sugar().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { L().Sugar().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { L().Sugar().Errorf(format, v...) }
func Fatalf(format string, v ...interface{}) { L().Sugar().Fatalf(format, v...) }
