package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
)

// shortSessionLen is how much of a session id the console subject shows.
const shortSessionLen = 8

type field struct {
	key   string
	value slog.Value
}

// consoleHandler writes one human readable line per record:
//
//	2026-01-02 15:04:05.000 INFO worker: tags emitted [item #42 (emitting) · session 1a2b3c4d] tags=Fantasy,Fiction
//
// The component, session, item, and stage fields are lifted out of the
// key=value tail into the prefix and subject.
type consoleHandler struct {
	out    *consoleOutput
	level  slog.Leveler
	source bool
	prefix string
	fields []field
}

type consoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{out: &consoleOutput{w: w}, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]field, 0, len(h.fields)+r.NumAttrs())
	fields = append(fields, h.fields...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})

	var line lineParts
	line.take(fields)

	var b strings.Builder
	b.WriteString(consoleTime(r.Time))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level))
	b.WriteByte(' ')
	if line.component != "" {
		b.WriteString(line.component)
		b.WriteString(": ")
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if subject := line.subject(); subject != "" {
		b.WriteString(" [")
		b.WriteString(subject)
		b.WriteByte(']')
	}
	if h.source {
		if src := recordSource(r); src != nil && src.File != "" {
			b.WriteString(" (")
			b.WriteString(sourceLabel(src))
			b.WriteByte(')')
		}
	}
	for _, f := range line.rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(consoleValue(f.value))
	}
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = make([]field, len(h.fields), len(h.fields)+len(attrs))
	copy(next.fields, h.fields)
	for _, a := range attrs {
		next.fields = appendField(next.fields, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = joinKey(h.prefix, name)
	return &next
}

func appendField(fields []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = joinKey(prefix, a.Key)
		}
		for _, ga := range a.Value.Group() {
			fields = appendField(fields, inner, ga)
		}
		return fields
	}
	return append(fields, field{key: joinKey(prefix, a.Key), value: a.Value})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// lineParts splits fields into the prefix, the subject, and the tail. The
// last value wins when a key repeats, so per-call attrs override logger ones.
type lineParts struct {
	component string
	session   string
	item      string
	stage     string
	rest      []field
}

func (l *lineParts) take(fields []field) {
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			l.component = plainValue(f.value)
		case FieldSessionID:
			l.session = plainValue(f.value)
		case FieldItemID:
			l.item = plainValue(f.value)
		case FieldStage:
			l.stage = plainValue(f.value)
		case "":
		default:
			l.rest = append(l.rest, f)
		}
	}
}

func (l *lineParts) subject() string {
	parts := make([]string, 0, 2)
	switch {
	case l.item != "" && l.stage != "":
		parts = append(parts, "item #"+l.item+" ("+l.stage+")")
	case l.item != "":
		parts = append(parts, "item #"+l.item)
	case l.stage != "":
		parts = append(parts, l.stage)
	}
	if l.session != "" {
		session := l.session
		if len(session) > shortSessionLen {
			session = session[:shortSessionLen]
		}
		parts = append(parts, "session "+session)
	}
	return strings.Join(parts, " · ")
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// recordSource mirrors slog.Record.Source (Go 1.25) for older toolchains.
func recordSource(r slog.Record) *slog.Source {
	if r.PC == 0 {
		return nil
	}
	fs := runtime.CallersFrames([]uintptr{r.PC})
	f, _ := fs.Next()
	return &slog.Source{Function: f.Function, File: f.File, Line: f.Line}
}
