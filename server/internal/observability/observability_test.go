package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextLogsBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rc := NewRequestContextWithID(logger, "req-1", "record_review", "alice")
	rc.Info("review recorded", slog.String(LogFieldSessionID, "s1"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line[LogFieldRequestID])
	assert.Equal(t, "alice", line[LogFieldUserID])
	assert.Equal(t, "record_review", line[LogFieldOperation])
	assert.Equal(t, "s1", line[LogFieldSessionID])
}

func TestRequestContextGeneratesID(t *testing.T) {
	rc := NewRequestContext(nil, "get_profile", "bob")
	assert.Len(t, rc.RequestID, 36)
	assert.NotNil(t, rc.Logger)

	ctx := WithRequestContext(context.Background(), rc)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	rc := NewRequestContextWithID(slog.New(slog.NewJSONHandler(&buf, nil)), "req-2", "finish_session", "")
	rc.Info("anonymous")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, LogFieldUserID, "unknown users are omitted")

	buf.Reset()
	Logger(WithRequestContext(context.Background(), rc)).Info("session finished")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-2", line[LogFieldRequestID])
	assert.Equal(t, "finish_session", line[LogFieldOperation])

	assert.Same(t, slog.Default(), Logger(context.Background()))
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 100.0, m.Snapshot().SuccessRate())

	m.RecordRequest("record_review", 10*time.Millisecond, false)
	m.RecordRequest("record_review", 30*time.Millisecond, true)
	m.RecordRequest("get_profile", 5*time.Millisecond, false)
	m.RecordReview()

	s := m.Snapshot()
	assert.Equal(t, int64(3), s.RequestTotal)
	assert.Equal(t, int64(1), s.RequestFailed)
	assert.Equal(t, int64(1), s.ReviewsTotal)
	require.Len(t, s.Operations, 2)
	assert.Equal(t, "get_profile", s.Operations[0].Operation)
	assert.Equal(t, int64(20), s.Operations[1].AverageDurationMs)
	assert.Equal(t, int64(1), s.Operations[1].ErrorCount)
	assert.InDelta(t, 66.67, s.SuccessRate(), 0.01)

	m.Reset()
	assert.Empty(t, m.Snapshot().Operations)
}
