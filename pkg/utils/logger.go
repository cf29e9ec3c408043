package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - настройка логирования
//
// Назначение:
// Инициализация структурированного логирования на базе zap.
// Формат json для продакшена, console для разработки.
// Компоненты получают именованные подлоггеры через logger.Named().

// InitLogger создаёт и настраивает logger.
//
// Параметры:
//   - level: debug, info, warn, error
//   - format: json или console
func InitLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info", "":
		lvl = zapcore.InfoLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json", "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// MustInitLogger - InitLogger с panic при ошибке (для main)
func MustInitLogger(level, format string) *zap.Logger {
	logger, err := InitLogger(level, format)
	if err != nil {
		panic(err)
	}
	return logger
}
