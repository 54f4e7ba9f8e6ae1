// Package logger provides the structured logger used by evwrap wrappers and tools.
//
// It wraps zap's SugaredLogger behind a small interface, supports JSON and pretty
// encodings and enriches entries with invocation metadata found in the context.
package logger

import (
	"context"
	"errors"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/meta"
	"go.uber.org/zap"
)

// Logger is the logging interface used across evwrap.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg any)
	// Info logs a message at info level.
	Info(msg any)
	// Warn logs a message at warn level.
	Warn(msg any)
	// Error logs a message at error level.
	Error(msg any)

	// Debugf logs a formatted message at debug level.
	Debugf(format string, args ...any)
	// Infof logs a formatted message at info level.
	Infof(format string, args ...any)
	// Warnf logs a formatted message at warn level.
	Warnf(format string, args ...any)
	// Errorf logs a formatted message at error level.
	Errorf(format string, args ...any)

	// Warnx logs err at warn level, expanding errx.ErrorX fields.
	Warnx(err error)
	// Errorx logs err at error level, expanding errx.ErrorX fields.
	Errorx(err error)

	// With returns a logger that adds the key-value pairs to every entry.
	With(keysAndValues ...any) Logger
	// WithContext returns a logger enriched with the metadata found in ctx.
	WithContext(ctx context.Context) Logger
	// Named adds a sub-scope to the logger's name.
	Named(name string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

type logger struct {
	*zap.SugaredLogger
}

// New creates a Logger from cfg.
func New(cfg Config) (Logger, error) {
	if cfg.Disable {
		return Nop(), nil
	}

	zapConfig, err := cfg.zapConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	if cfg.Encoding == EncodingPretty {
		return &logger{newPrettyLogger(zapConfig).Sugar()}, nil
	}

	zl, err := zapConfig.Build()
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return &logger{zl.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &logger{zap.NewNop().Sugar()}
}

// FromZap adapts an existing zap logger.
func FromZap(zl *zap.Logger) Logger {
	return &logger{zl.Sugar()}
}

func (l *logger) Debug(msg any) { l.SugaredLogger.Debug(msg) }
func (l *logger) Info(msg any)  { l.SugaredLogger.Info(msg) }
func (l *logger) Warn(msg any)  { l.SugaredLogger.Warn(msg) }
func (l *logger) Error(msg any) { l.SugaredLogger.Error(msg) }

func (l *logger) Warnx(err error) {
	if err == nil {
		return
	}
	l.withErrorFields(err).Warn(err.Error())
}

func (l *logger) Errorx(err error) {
	if err == nil {
		return
	}
	l.withErrorFields(err).Error(err.Error())
}

func (l *logger) withErrorFields(err error) Logger {
	var e errx.ErrorX
	if !errors.As(err, &e) {
		return l
	}
	return l.With(
		"error_code", e.Code(),
		"error_type", e.Type().String(),
		"error_trace", e.Trace(),
		"error_fields", e.Fields(),
		"error_details", e.Details(),
	)
}

func (l *logger) With(keysAndValues ...any) Logger {
	return &logger{l.SugaredLogger.With(keysAndValues...)}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}

	var fields []any
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		// string keys, zap rejects ContextKey
		fields = append(fields, string(k), v)
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func (l *logger) Named(name string) Logger {
	return &logger{l.SugaredLogger.Named(name)}
}
