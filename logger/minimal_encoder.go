package logger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	time      string
	component []string
	key       string
	symbol    string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

var themes = map[string]palette{
	// Everforest Dark (natural greens)
	"everforest": {
		time:      "\x1b[38;5;107m",
		component: []string{"\x1b[38;5;108m", "\x1b[38;5;65m", "\x1b[38;5;208m"},
		key:       "\x1b[38;5;245m",
		symbol:    "\x1b[38;5;108m",
		warn:      "\x1b[38;5;179m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;52m",
	},
	// Gruvbox Dark (warm, muted)
	"gruvbox": {
		time:      "\x1b[38;5;108m",
		component: []string{"\x1b[38;5;208m", "\x1b[38;5;214m"},
		key:       "\x1b[38;5;246m",
		symbol:    "\x1b[38;5;142m",
		warn:      "\x1b[38;5;214m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;88m",
	},
}

var currentTheme = "everforest"

// SetTheme configures the color scheme for log output. Unknown themes are ignored.
func SetTheme(theme string) {
	if _, ok := themes[theme]; ok {
		currentTheme = theme
	}
}

func colors() palette {
	return themes[currentTheme]
}

func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	cs := colors().component
	return cs[hash%len(cs)]
}

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  ⏲ schedule  job fired  path=content/drafts/scheduled/foo.md"
//
// Context fields added through Logger.With are kept in the embedded map
// encoder so they are printed alongside per-entry fields; nothing is dropped.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return &minimalEncoder{MapObjectEncoder: clone}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := buffer.NewPool().Get()

	final.AppendString(c.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only shown for WARN and above
	if ent.Level > zapcore.InfoLevel || ent.Level == zapcore.DebugLevel {
		final.AppendString("  ")
		final.AppendString(levelString(ent.Level))
	}

	all := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		all.Fields[k] = v
	}
	var order []string
	ctxKeys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		ctxKeys = append(ctxKeys, k)
	}
	sort.Strings(ctxKeys)
	order = append(order, ctxKeys...)
	for _, f := range fields {
		if _, seen := all.Fields[f.Key]; !seen {
			order = append(order, f.Key)
		}
		f.AddTo(all)
	}

	if sym, ok := all.Fields[FieldSymbol].(string); ok && sym != "" {
		final.AppendString("  ")
		final.AppendString(c.symbol)
		final.AppendString(sym)
		final.AppendString(colorReset)
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(ent.LoggerName)
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	for _, key := range order {
		if key == FieldSymbol {
			continue
		}
		// zap adds "<key>Verbose" with the full stack for formattable errors
		if strings.HasSuffix(key, "Verbose") && !ShouldLogTrace(Verbosity) {
			continue
		}
		v, ok := all.Fields[key]
		if !ok {
			continue
		}
		final.AppendString("  ")
		final.AppendString(c.key)
		final.AppendString(key)
		final.AppendString("=")
		final.AppendString(colorReset)
		final.AppendString(formatValue(v))
	}

	if ent.Stack != "" && ent.Level >= zapcore.ErrorLevel && ShouldLogTrace(Verbosity) {
		final.AppendString("\n")
		final.AppendString(ent.Stack)
	}

	final.AppendString("\n")
	return final, nil
}

func levelString(level zapcore.Level) string {
	c := colors()
	switch level {
	case zapcore.DebugLevel:
		return c.key + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	default:
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	}
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case time.Duration:
		return val.String()
	case []interface{}:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = formatValue(p)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}
