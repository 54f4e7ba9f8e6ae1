package logger

import (
	"bytes"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // static palette shared by every encoder
var levelColors = map[zapcore.Level]*color.Color{
	zapcore.DebugLevel:  color.New(color.FgCyan),
	zapcore.InfoLevel:   color.New(color.FgGreen),
	zapcore.WarnLevel:   color.New(color.FgYellow),
	zapcore.ErrorLevel:  color.New(color.FgRed, color.Bold),
	zapcore.DPanicLevel: color.New(color.FgRed, color.Bold),
	zapcore.PanicLevel:  color.New(color.FgRed, color.Bold),
	zapcore.FatalLevel:  color.New(color.FgMagenta, color.Bold),
}

//nolint:gochecknoglobals // static styles
var (
	timeColor  = color.New(color.Faint)
	keyColor   = color.New(color.FgHiCyan)
	nameColor  = color.New(color.FgHiBlack)
	fieldsPool = buffer.NewPool()
)

// prettyEncoder renders entries as a colored header line followed by indented fields.
type prettyEncoder struct {
	zapcore.Encoder
}

func (e *prettyEncoder) Clone() zapcore.Encoder {
	return &prettyEncoder{Encoder: e.Encoder.Clone()}
}

func newPrettyLogger(cfg *zap.Config) *zap.Logger {
	enc := &prettyEncoder{Encoder: zapcore.NewJSONEncoder(cfg.EncoderConfig)}
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), cfg.Level)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(os.Stderr)))
}

func (e *prettyEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	raw, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer raw.Free()

	var payload map[string]any
	if err = json.Unmarshal(bytes.TrimSpace(raw.Bytes()), &payload); err != nil {
		// not an object, print as is
		out := fieldsPool.Get()
		_, _ = out.Write(raw.Bytes())
		return out, nil //nolint:nilerr // fall back to raw output
	}

	out := fieldsPool.Get()
	out.AppendString(header(entry))
	out.AppendByte('\n')
	writeFields(out, payload)
	return out, nil
}

func header(entry zapcore.Entry) string {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	level := strings.ToUpper(entry.Level.String())
	if c, ok := levelColors[entry.Level]; ok {
		level = c.Sprint(level)
	}

	var b strings.Builder
	b.WriteString(timeColor.Sprint("[" + ts.Format(time.DateTime) + "]"))
	b.WriteByte(' ')
	b.WriteString(level)
	if entry.LoggerName != "" {
		b.WriteByte(' ')
		b.WriteString(nameColor.Sprint(entry.LoggerName))
	}
	if entry.Message != "" {
		b.WriteByte(' ')
		b.WriteString(entry.Message)
	}
	return b.String()
}

func writeFields(out *buffer.Buffer, payload map[string]any) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		switch k {
		case timeKey, levelKey, messageKey, nameKey:
			continue
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		value, err := json.MarshalIndent(payload[k], "  ", "  ")
		if err != nil {
			continue
		}
		out.AppendString("  ")
		out.AppendString(keyColor.Sprint(k))
		out.AppendString(": ")
		_, _ = out.Write(value)
		out.AppendByte('\n')
	}
}
