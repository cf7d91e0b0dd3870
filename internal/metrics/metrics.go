// Package metrics defines the scalar-series logging surface the engine and
// logger modules emit into. Tags follow the "<mode>/<MetricName>"
// convention; transport beyond structured logs is an external concern.
package metrics

import "log/slog"

// Logger receives scalar series keyed by tag at iteration boundaries.
type Logger interface {
	Scalar(tag string, value float64, step int)
}

// Slog emits scalars as structured log records.
type Slog struct {
	base *slog.Logger
}

// NewSlog wraps a slog.Logger as a metric sink.
func NewSlog(base *slog.Logger) *Slog {
	return &Slog{base: base}
}

func (l *Slog) Scalar(tag string, value float64, step int) {
	l.base.Info("metric", "tag", tag, "value", value, "step", step)
}

// Nop discards every scalar; useful default for tests.
type Nop struct{}

func (Nop) Scalar(string, float64, int) {}
