package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_Log(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "test message",
			fields:  Fields{"key": "value"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "debug message",
			want:    false,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "error occurred",
			err:     errors.New("test error"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(LevelInfo, &buf)

			logger.log(tt.level, tt.message, tt.fields, tt.err)

			assert.Equal(t, tt.want, buf.Len() > 0)
		})
	}
}

func TestLogger_EntryShape(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelDebug, &buf)

	logger.Error("fetch failed", Fields{"url": "https://example.com", "status": 503}, errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "fetch failed", entry["message"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "https://example.com", entry["url"])
	assert.EqualValues(t, 503, entry["status"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  Level
		logLevel  Level
		shouldLog bool
	}{
		{"debug logs at debug", LevelDebug, LevelDebug, true},
		{"info logs at debug", LevelDebug, LevelInfo, true},
		{"debug doesn't log at info", LevelInfo, LevelDebug, false},
		{"warn doesn't log at error", LevelError, LevelWarn, false},
		{"error always logs", LevelDebug, LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(tt.minLevel, &buf)

			logger.log(tt.logLevel, "test", nil, nil)

			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := New(LevelInfo, &buf)

	l := base.With(Fields{"run_id": "abc"})
	l.Info("first", nil)
	l.Info("second", Fields{"page": 2})
	base.Info("plain", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "abc", entries[0]["run_id"])
	assert.Equal(t, "abc", entries[1]["run_id"])
	assert.EqualValues(t, 2, entries[1]["page"])
	assert.NotContains(t, entries[2], "run_id")
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := Open(Config{Level: "info", File: path})
	require.NoError(t, err)

	logger.Info("written to file", nil)
	require.NoError(t, logger.Close())

	assert.FileExists(t, path)
}

func TestOpen_BadLevel(t *testing.T) {
	_, err := Open(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("pages.fetched")
	m.IncrCounter("pages.fetched")
	m.AddCounter("pages.fetched", 3)

	assert.EqualValues(t, 5, m.Counter("pages.fetched"))
	assert.EqualValues(t, 0, m.Counter("missing"))
}

func TestMetrics_Summary(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("records.extracted")
	m.RecordTiming("page.fetch", 100*time.Millisecond)
	m.RecordTiming("page.fetch", 200*time.Millisecond)
	m.RecordTiming("page.fetch", 150*time.Millisecond)

	summary := m.Summary()
	assert.EqualValues(t, 1, summary["records.extracted"])
	assert.Equal(t, 3, summary["page.fetch.count"])
	assert.Equal(t, "100ms", summary["page.fetch.min"])
	assert.Equal(t, "200ms", summary["page.fetch.max"])
	assert.Equal(t, "150ms", summary["page.fetch.avg"])
}

func TestPackageLevelError(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(LevelDebug, &buf))

	Error("test error", Fields{"component": "test"}, errors.New("test"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.Equal(t, "test", entries[0]["error"])
	assert.NotNil(t, DefaultMetrics())
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded", Fields{"k": "v"})
	assert.NoError(t, l.Close())
}
