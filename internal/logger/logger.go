package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with key/value helpers
type Logger struct {
	*zap.Logger
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or console text
	Output string // "stdout" or a file path

	// Service and Version are attached to every entry when set
	Service string
	Version string
}

// New builds a logger from configuration. Unknown levels fall back to info.
func New(cfg LogConfig) (*Logger, error) {
	zapLogger, err := buildConfig(cfg).Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}
	return &Logger{zapLogger}, nil
}

func buildConfig(cfg LogConfig) zap.Config {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewDevelopmentConfig()
	enc := zap.NewDevelopmentEncoderConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
		enc = zap.NewProductionEncoderConfig()
	}
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	zc.EncoderConfig = enc
	zc.Encoding = "console"
	if cfg.Format == "json" {
		zc.Encoding = "json"
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Development = false
	// Frame handlers log per request; keep every entry
	zc.Sampling = nil

	if cfg.Output != "" && cfg.Output != "stdout" {
		zc.OutputPaths = []string{cfg.Output}
		zc.ErrorOutputPaths = []string{cfg.Output}
	}

	fields := make(map[string]interface{}, 2)
	if cfg.Service != "" {
		fields["service"] = cfg.Service
	}
	if cfg.Version != "" {
		fields["version"] = cfg.Version
	}
	if len(fields) > 0 {
		zc.InitialFields = fields
	}
	return zc
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() {
	_ = l.Logger.Sync()
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(fields ...interface{}) *Logger {
	return &Logger{l.Logger.With(convertFields(fields...)...)}
}

// Named returns a child logger with the name appended
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

// ForRequest tags entries with an HTTP request id; an empty id is a no-op
func (l *Logger) ForRequest(id string) *Logger {
	if id == "" {
		return l
	}
	return l.With("request_id", id)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.Logger.Info(msg, convertFields(fields...)...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.Logger.Error(msg, convertFields(fields...)...)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.Logger.Warn(msg, convertFields(fields...)...)
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.Logger.Debug(msg, convertFields(fields...)...)
}

func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.Logger.Fatal(msg, convertFields(fields...)...)
}

// convertFields pairs up key/value arguments. Errors keep their message via
// zap.NamedError, non-string keys are skipped and a dangling key is dropped.
func convertFields(fields ...interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			out = append(out, zap.NamedError(key, v))
		default:
			out = append(out, zap.Any(key, v))
		}
	}
	return out
}

// NewNopLogger creates a no-op logger for testing
func NewNopLogger() *Logger {
	return &Logger{zap.NewNop()}
}
