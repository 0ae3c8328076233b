package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultWriter(t *testing.T) {
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON})
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
}

func TestNew_CustomWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  slog.LevelInfo,
		Format: FormatJSON,
		Writer: &buf,
	})
	logger.Info("file moved")

	assert.Contains(t, buf.String(), "file moved")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{"production uses json", "production", true},
		{"development uses pretty", "development", false},
		{"empty environment uses pretty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{
				Level:       slog.LevelInfo,
				Environment: tt.environment,
				Writer:      &buf,
			})
			logger.Info("test")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"test"`)
			} else {
				assert.Contains(t, buf.String(), "INF test")
			}
		})
	}
}

func TestNew_PrettyOnBufferHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatPretty, Writer: &buf})
	logger.Info("destination computed", "dest", "/docs/2026-10-19")

	assert.NotContains(t, buf.String(), "\033[", "non-terminal writers must not receive ANSI codes")
	assert.Contains(t, buf.String(), "dest=/docs/2026-10-19")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil, false)

	r := slog.NewRecord(time.Date(2026, 10, 19, 9, 30, 5, 0, time.Local), slog.LevelInfo, "file moved", 0)
	r.AddAttrs(slog.String("src", "/downloads/report.pdf"), slog.Int("attempt", 1))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "09:30:05 INF file moved src=/downloads/report.pdf attempt=1\n", buf.String())
}

func TestPrettyHandler_Colors(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil, true)

	r := slog.NewRecord(time.Now(), slog.LevelError, "move failed", 0)
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Contains(t, buf.String(), colorRed+"ERR"+colorReset)
	assert.Contains(t, buf.String(), colorBold+"move failed"+colorReset)
}

func TestPrettyHandler_QuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, nil, false))
	logger.Info("file detected", "name", "annual report.pdf", "empty", "")

	assert.Contains(t, buf.String(), `name="annual report.pdf"`)
	assert.Contains(t, buf.String(), `empty=""`)
}

func TestPrettyHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, nil, false)).With("attempt", "mv-abc")
	logger.Info("file moved", "dest", "/docs")

	assert.Contains(t, buf.String(), "attempt=mv-abc dest=/docs")
}

func TestPrettyHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, nil, false)).WithGroup("watch").With("root", "/downloads")
	logger.Info("started", "backend", "fsnotify")

	assert.Contains(t, buf.String(), "watch.root=/downloads watch.backend=fsnotify")
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true}, false))
	logger.Info("with source")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatLevel(t *testing.T) {
	tests := []struct {
		level     slog.Level
		wantStr   string
		wantColor string
	}{
		{slog.LevelDebug, "DBG", colorMagenta},
		{slog.LevelInfo, "INF", colorGreen},
		{slog.LevelWarn, "WRN", colorYellow},
		{slog.LevelError, "ERR", colorRed},
		{slog.Level(12), "ERROR+4", colorGray},
	}

	for _, tt := range tests {
		t.Run(tt.wantStr, func(t *testing.T) {
			gotStr, gotColor := formatLevel(tt.level)
			assert.Equal(t, tt.wantStr, gotStr)
			assert.Equal(t, tt.wantColor, gotColor)
		})
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
	assert.Equal(t, "2026-10-19T12:00:00Z", formatValue(slog.TimeValue(ts)))
	assert.Equal(t, "1.5s", formatValue(slog.DurationValue(1500*time.Millisecond)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
	assert.Equal(t, "true", formatValue(slog.BoolValue(true)))
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Writer: &buf})

	logger.WithError(errors.New("disk full")).Error("move failed")

	assert.Contains(t, buf.String(), `"error":"disk full"`)
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Writer: &buf})

	logger.WithField("root", "/downloads").Info("watching")

	assert.Contains(t, buf.String(), `"root":"/downloads"`)
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: FormatText, Writer: &buf})

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "WRN visible warn")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Error("nothing to see") })
}
