package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_RecordsOnTrace(t *testing.T) {
	ctx, tr := Start(context.Background(), "parse", "trace-1")

	elapsed := Stage(ctx, "scan")()
	Stage(ctx, "merge")()

	stages := tr.Stages()
	require.Len(t, stages, 2)
	assert.Equal(t, "scan", stages[0].Name)
	assert.Equal(t, elapsed, stages[0].Duration)
	assert.Equal(t, "merge", stages[1].Name)
	assert.Same(t, tr, FromContext(ctx))
}

func TestStage_WithoutTraceStillTimes(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	end := Stage(context.Background(), "scan")
	assert.GreaterOrEqual(t, end().Nanoseconds(), int64(0))
}

func TestFinish_LogsOneRecord(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, tr := Start(context.Background(), "parse", "req-9")
	tr.Set("doc_id", "doc-1")
	Stage(ctx, "normalize")()
	tr.Finish()

	out := buf.String()
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Contains(t, out, "trace_id=req-9")
	assert.Contains(t, out, "normalize_ms=")
	assert.Contains(t, out, "doc_id=doc-1")
}
