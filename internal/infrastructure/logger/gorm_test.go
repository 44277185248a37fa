package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func traceCallback(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestNewGormLoggerDefaults(t *testing.T) {
	log, _ := observedLogger()
	gl := NewGormLogger(log, gormlogger.Warn)

	assert.Equal(t, gormlogger.Warn, gl.level)
	assert.Equal(t, defaultSlowThreshold, gl.slowThreshold)
	assert.True(t, gl.skipNotFound)
}

func TestNewGormLoggerOptions(t *testing.T) {
	log, _ := observedLogger()
	gl := NewGormLogger(log, gormlogger.Info,
		WithSlowThreshold(50*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 50*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.skipNotFound)
}

func TestLogModeReturnsCopy(t *testing.T) {
	log, _ := observedLogger()
	gl := NewGormLogger(log, gormlogger.Warn)

	silent := gl.LogMode(gormlogger.Silent)
	assert.Equal(t, gormlogger.Silent, silent.(*GormLogger).level)
	assert.Equal(t, gormlogger.Warn, gl.level)
}

func TestTraceError(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), traceCallback("INSERT INTO orders", 0), assert.AnError)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "SQL error", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "INSERT INTO orders", fields["sql"])
	assert.Contains(t, fields, "error")
}

func TestTraceSkipsRecordNotFound(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), traceCallback("SELECT * FROM orders", 0), gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())
}

func TestTraceLogsRecordNotFoundWhenConfigured(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Error, WithIgnoreRecordNotFoundError(false))

	gl.Trace(context.Background(), time.Now(), traceCallback("SELECT * FROM orders", 0), gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len())
}

func TestTraceSlowQuery(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Warn, WithSlowThreshold(time.Millisecond))

	begin := time.Now().Add(-100 * time.Millisecond)
	gl.Trace(context.Background(), begin, traceCallback("SELECT * FROM inventory_items", 12), nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "Slow SQL")
	assert.EqualValues(t, 12, entry.ContextMap()["rows"])
}

func TestTraceSlowQueryDisabledByZeroThreshold(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Warn, WithSlowThreshold(0))

	begin := time.Now().Add(-time.Second)
	gl.Trace(context.Background(), begin, traceCallback("SELECT 1", 1), nil)
	assert.Zero(t, logs.Len())
}

func TestTraceDebugAtInfoLevel(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), traceCallback("SELECT 1", 1), nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	assert.Equal(t, "SQL query", entry.Message)
}

func TestTraceSilent(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), traceCallback("SELECT 1", 1), assert.AnError)
	assert.Zero(t, logs.Len())
}

func TestTraceCorrelationFields(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Info)

	ctx, _ := WithRequestID(spanContextForTest(t), log, "req-55")
	gl.Trace(ctx, time.Now(), traceCallback("SELECT 1", 1), nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-55", fields["request_id"])
	assert.Equal(t, GetTraceID(ctx), fields["trace_id"])
}

func TestGormLoggerLevelGating(t *testing.T) {
	log, logs := observedLogger()
	gl := NewGormLogger(log, gormlogger.Error)
	ctx := context.Background()

	gl.Info(ctx, "ignored %s", "info")
	gl.Warn(ctx, "ignored %s", "warn")
	gl.Error(ctx, "kept %s", "error")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept error", logs.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	cases := []struct {
		input string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"bogus", gormlogger.Warn},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, MapGormLogLevel(tc.input), "level %q", tc.input)
	}
}
