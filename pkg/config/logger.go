package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger: production JSON by default, the
// development console encoder when format is "console".
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if l.Level != "" {
		parsed, err := zapcore.ParseLevel(l.Level)
		if err != nil {
			return nil, fmt.Errorf("config: logging.level: %w", err)
		}
		level = parsed
	}

	var zc zap.Config
	switch l.Format {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("config: logging.format %q must be json or console", l.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
