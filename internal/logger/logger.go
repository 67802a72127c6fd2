// Package logger builds the application's zap logger and carries it through
// request contexts.
package logger

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	orm "github.com/medatechnology/tenantorm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
}

var log = zap.NewNop()

// New builds a logger from config. Production gets JSON output, anything
// else the colored console encoder.
func New(config LogConfig) (*zap.Logger, error) {
	level := parseLevel(config.Level)
	fields := zap.Fields(
		zap.String("service", config.ServiceName),
		zap.String("environment", config.Environment),
	)

	if config.Environment == "production" {
		prodConfig := zap.NewProductionConfig()
		prodConfig.Level = zap.NewAtomicLevelAt(level)
		prodConfig.EncoderConfig.TimeKey = "timestamp"
		prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return prodConfig.Build(fields)
	}

	devConfig := zap.NewDevelopmentConfig()
	devConfig.Level = zap.NewAtomicLevelAt(level)
	devConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return devConfig.Build(fields)
}

// InitLogger builds the logger and installs it as the process-wide default.
func InitLogger(config LogConfig) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the default logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log = l
	zap.ReplaceGlobals(l)
}

// GetLogger returns the default logger. It never returns nil.
func GetLogger() *zap.Logger {
	return log
}

// ORM adapts l for the database layer, keeping the configured level.
func ORM(l *zap.Logger, level string) orm.Logger {
	return orm.NewZapLogger(l, ormLevel(parseLevel(level)))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ormLevel(l zapcore.Level) orm.LogLevel {
	switch l {
	case zapcore.DebugLevel:
		return orm.LogLevelDebug
	case zapcore.WarnLevel:
		return orm.LogLevelWarn
	case zapcore.ErrorLevel:
		return orm.LogLevelError
	default:
		return orm.LogLevelInfo
	}
}

// Middleware returns an Echo middleware that logs HTTP requests. It expects
// the request id to have been set already.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			FromEcho(c).Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			)
			return nil
		}
	}
}
