package logger

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

func encode(t *testing.T, enc zapcore.Encoder, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	defer buf.Free()
	return stripANSI(buf.String())
}

// The encoder must never silently discard log fields.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Date(2024, 6, 27, 14, 0, 0, 0, time.UTC),
		LoggerName: "schedule",
		Message:    "job scheduled",
	}

	tests := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String("path", "content/drafts/scheduled/foo.md"), "path=content/drafts/scheduled/foo.md"},
		{zap.String("random_field_xyz", "important_data"), "random_field_xyz=important_data"},
		{zap.Int("count", 3), "count=3"},
		{zap.Int64("duration_ms", 1500), "duration_ms=1500"},
		{zap.Bool("draft", false), "draft=false"},
		{zap.Float64("ratio", 0.5), "ratio=0.5"},
		{zap.Duration("delay", 2 * time.Second), "delay=2s"},
		{zap.Strings("tags", []string{"rust", "go"}), "tags=[rust go]"},
		{zap.String("field.with.dots", "x"), "field.with.dots=x"},
	}

	var fields []zapcore.Field
	for _, tt := range tests {
		fields = append(fields, tt.field)
	}

	out := encode(t, newMinimalEncoder(), entry, fields...)

	assert.Contains(t, out, "14:00:00")
	assert.Contains(t, out, "schedule")
	assert.Contains(t, out, "job scheduled")
	for _, tt := range tests {
		assert.Contains(t, out, tt.mustFind)
	}
}

func TestMinimalEncoderKeepsContextFields(t *testing.T) {
	enc := newMinimalEncoder()
	// Mimic Logger.With(...) which adds fields to a clone of the encoder
	clone := enc.Clone()
	zap.String(FieldSymbol, SymSchedule).AddTo(clone)
	zap.String("slug", "hello-world").AddTo(clone)

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "fired"}
	out := encode(t, clone, entry, zap.String("path", "a.md"))

	assert.Contains(t, out, SymSchedule)
	assert.Contains(t, out, "slug=hello-world")
	assert.Contains(t, out, "path=a.md")
	assert.NotContains(t, out, "symbol=")

	// The original encoder is untouched by the clone
	plain := encode(t, enc, entry)
	assert.NotContains(t, plain, "slug=")
}

func TestMinimalEncoderLevels(t *testing.T) {
	enc := newMinimalEncoder()
	now := time.Now()

	info := encode(t, enc, zapcore.Entry{Level: zapcore.InfoLevel, Time: now, Message: "m"})
	assert.NotContains(t, info, "INFO")

	warn := encode(t, enc, zapcore.Entry{Level: zapcore.WarnLevel, Time: now, Message: "m"})
	assert.Contains(t, warn, "WARN")

	errOut := encode(t, enc, zapcore.Entry{Level: zapcore.ErrorLevel, Time: now, Message: "m"})
	assert.Contains(t, errOut, "ERROR")
}

func TestMinimalEncoderErrorField(t *testing.T) {
	Verbosity = VerbosityUser
	enc := newMinimalEncoder()
	out := encode(t, enc,
		zapcore.Entry{Level: zapcore.ErrorLevel, Time: time.Now(), Message: "build failed"},
		zap.Error(errors.New("exit status 1")),
	)

	assert.Contains(t, out, "error=exit status 1")
	assert.NotContains(t, out, "errorVerbose")
}

func TestSetTheme(t *testing.T) {
	defer SetTheme("everforest")

	SetTheme("gruvbox")
	assert.Equal(t, "gruvbox", currentTheme)

	SetTheme("does-not-exist")
	assert.Equal(t, "gruvbox", currentTheme)
}
