package logger

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// slogZapHandler forwards slog records to a zap logger so third-party
// packages that log via slog share the same sinks and format.
type slogZapHandler struct {
	logger *zap.Logger
	attrs  []zap.Field
	groups []string
}

func newSlogZapHandler(logger *zap.Logger) slog.Handler {
	return &slogZapHandler{logger: logger}
}

func (h *slogZapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Core().Enabled(slogToZapLevel(level))
}

func (h *slogZapHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]zap.Field, 0, len(h.attrs)+record.NumAttrs())
	fields = append(fields, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = append(fields, h.attrToField(attr))
		return true
	})

	if ce := h.logger.Check(slogToZapLevel(record.Level), record.Message); ce != nil {
		ce.Time = record.Time
		ce.Write(fields...)
	}
	return nil
}

func (h *slogZapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	for _, attr := range attrs {
		next.attrs = append(next.attrs, next.attrToField(attr))
	}
	return next
}

func (h *slogZapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *slogZapHandler) clone() *slogZapHandler {
	return &slogZapHandler{
		logger: h.logger,
		attrs:  append([]zap.Field(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *slogZapHandler) attrToField(attr slog.Attr) zap.Field {
	key := attr.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}

	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return zap.String(key, value.String())
	case slog.KindInt64:
		return zap.Int64(key, value.Int64())
	case slog.KindUint64:
		return zap.Uint64(key, value.Uint64())
	case slog.KindFloat64:
		return zap.Float64(key, value.Float64())
	case slog.KindBool:
		return zap.Bool(key, value.Bool())
	case slog.KindDuration:
		return zap.Duration(key, value.Duration())
	case slog.KindTime:
		return zap.Time(key, value.Time())
	case slog.KindGroup:
		fields := make([]zap.Field, 0, len(value.Group()))
		for _, member := range value.Group() {
			fields = append(fields, h.attrToField(member))
		}
		return zap.Dict(key, fields...)
	default:
		return zap.Any(key, value.Any())
	}
}

func slogToZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
