// Package tracing times the stages of a parse and logs them as one record
// per document. A trace travels in the context; stages started without one
// are still timed for metrics.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// StageTiming is one finished stage.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Trace collects the stages run on behalf of one request or message.
type Trace struct {
	Name    string
	TraceID string
	start   time.Time

	mu     sync.Mutex
	stages []StageTiming
	attrs  []any
	total  time.Duration
}

// Start begins a trace and stores it in the returned context.
func Start(ctx context.Context, name, traceID string) (context.Context, *Trace) {
	t := &Trace{Name: name, TraceID: traceID, start: time.Now()}
	return context.WithValue(ctx, contextKey{}, t), t
}

// FromContext returns the trace in ctx, or nil.
func FromContext(ctx context.Context) *Trace {
	t, _ := ctx.Value(contextKey{}).(*Trace)
	return t
}

// Stage starts timing a stage. The returned function stops the clock,
// records the stage on the trace in ctx if there is one, and returns the
// elapsed time.
func Stage(ctx context.Context, name string) func() time.Duration {
	start := time.Now()
	t := FromContext(ctx)
	return func() time.Duration {
		d := time.Since(start)
		if t != nil {
			t.mu.Lock()
			t.stages = append(t.stages, StageTiming{Name: name, Duration: d})
			t.mu.Unlock()
		}
		return d
	}
}

// Set attaches an attribute to the trace's log record.
func (t *Trace) Set(key string, value any) {
	t.mu.Lock()
	t.attrs = append(t.attrs, key, value)
	t.mu.Unlock()
}

// Stages returns the finished stages in completion order.
func (t *Trace) Stages() []StageTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]StageTiming(nil), t.stages...)
}

// Finish stops the trace, logs it at debug level and returns its total
// duration.
func (t *Trace) Finish() time.Duration {
	t.mu.Lock()
	t.total = time.Since(t.start)
	attrs := []any{
		"trace_id", t.TraceID,
		"trace", t.Name,
		"total_ms", millis(t.total),
	}
	for _, s := range t.stages {
		attrs = append(attrs, s.Name+"_ms", millis(s.Duration))
	}
	attrs = append(attrs, t.attrs...)
	t.mu.Unlock()

	slog.Debug("trace", attrs...)
	return t.total
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
