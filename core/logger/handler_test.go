package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLine logs a single record through a fresh handler and returns the
// rendered line without the trailing newline.
func captureLine(t *testing.T, format logFormat, ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	var buf bytes.Buffer
	w := newAsyncWriter([]io.Writer{&buf}, 16)
	h := newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: w, format: format})

	LogEvent(ctx, slog.New(h).With("component", component), level, event, attrs...)
	require.NoError(t, w.Close())
	return strings.TrimSpace(buf.String())
}

func assertOrdered(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		require.NotEqual(t, -1, idx, "%q missing in %s", p, line)
		require.Greater(t, idx, pos, "%q out of order in %s", p, line)
		pos = idx
	}
}

func TestKVLineFollowsKeyOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	line := captureLine(t, formatKV, ctx, "app", slog.LevelInfo, "test.event",
		slog.String("cause", "unit"),
		slog.String("status", "ok"),
	)

	fields := strings.Fields(line)
	require.GreaterOrEqual(t, len(fields), 6)
	for i, prefix := range []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"} {
		assert.True(t, strings.HasPrefix(fields[i], prefix), "field %d = %s", i, fields[i])
	}
	assert.Contains(t, line, "update_id=42")
	assert.Contains(t, line, "chat_id=9")
}

func TestJSONLineFollowsKeyOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-json"), 11, 22, 33)
	line := captureLine(t, formatJSON, ctx, "service.test", slog.LevelError, "service.failed",
		slog.String("err", "boom"),
		slog.String("status", "fail"),
	)

	assertOrdered(t, line, `{"ts":`, `"level":"ERROR"`, `"component":"service.test"`, `"event":"service.failed"`, `"status":"fail"`, `"rid":"rid-json"`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, "boom", decoded["err"])
	assert.Contains(t, decoded, "ts_unix_nano")
}

func TestCompactRIDPerFormat(t *testing.T) {
	const raw = "123:456:789"
	ctx := WithRID(Background(), raw)

	kv := captureLine(t, formatKV, ctx, "app", slog.LevelInfo, "rid.test")
	assert.Contains(t, kv, "rid="+CompactRID(raw))
	assert.NotContains(t, kv, "rid_full=")

	js := captureLine(t, formatJSON, ctx, "app", slog.LevelInfo, "rid.test")
	assert.Contains(t, js, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, js, `"rid_full":"`+raw+`"`)
}

func TestConversationMetadata(t *testing.T) {
	ctx := WithHandler(WithConversation(WithRID(Background(), "rid-conv"), "c0ffee"), "text")
	line := captureLine(t, formatKV, ctx, "conversation", slog.LevelDebug, "transition",
		slog.String("status", "ok"),
		slog.String("from", "idle"),
		slog.String("to", "awaiting_section"),
		slog.Duration("took", 1500*time.Microsecond),
	)

	assertOrdered(t, line, "rid=rid-conv", "conv_id=c0ffee")
	for _, want := range []string{"handler=text", "from=idle", "to=awaiting_section", "took_ms=2"} {
		assert.Contains(t, line, want)
	}
}

func TestEntryNormalization(t *testing.T) {
	line := captureLine(t, formatJSON, Background(), "", slog.LevelWarn, "",
		slog.String("status", "canceled"),
		slog.String("outcome", "weird"),
		slog.String("empty", "  "),
		slog.Group("send", slog.Int("attempts", 2)),
	)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, "app", decoded["component"])
	assert.Equal(t, "unknown", decoded["event"])
	assert.Equal(t, "cancelled", decoded["status"])
	assert.Equal(t, float64(2), decoded["send.attempts"])
	assert.NotContains(t, decoded, "outcome")
	assert.NotContains(t, decoded, "empty")
}

func TestHandlerRespectsLevel(t *testing.T) {
	h := newStructuredHandler(handlerConfig{level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.Error(t, h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "x", 0)))
}

func TestDurationKey(t *testing.T) {
	for in, want := range map[string]string{
		"duration":         "duration_ms",
		"startup_duration": "startup_duration_ms",
		"elapsed_ms":       "elapsed_ms",
		"delay":            "delay_ms",
	} {
		assert.Equal(t, want, durationKey(in), in)
	}
}
