package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shelftags/internal/config"
	"shelftags/internal/textutil"
)

// Supported values for Options.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// logFileName is the file written inside the configured log directory.
const logFileName = "shelftags.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists destinations: "stdout", "stderr", or file paths.
	// Defaults to stderr when Writer is nil.
	Outputs []string
	// Writer receives every line alongside Outputs.
	Writer io.Writer
	// Source adds the caller to each line. Debug loggers always include it.
	Source bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	w, err := openOutputs(opts.Outputs, opts.Writer)
	if err != nil {
		return nil, err
	}
	source := opts.Source || level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", FormatConsole:
		return slog.New(newConsoleHandler(w, level, source)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			AddSource:   source,
			ReplaceAttr: jsonAttr,
		})), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates a logger from the [logging] section. Lines go to w
// (stderr when nil) and, when a directory is configured, to shelftags.log
// inside it.
func NewFromConfig(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	var outputs []string
	if w == nil {
		outputs = append(outputs, "stderr")
	}
	if cfg == nil {
		return New(Options{Outputs: outputs, Writer: w})
	}
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, logFileName))
	}
	return New(Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: outputs,
		Writer:  w,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutputs(outputs []string, extra io.Writer) (io.Writer, error) {
	outputs = textutil.Dedupe(outputs)
	if len(outputs) == 0 {
		if extra != nil {
			return extra, nil
		}
		return os.Stderr, nil
	}
	writers := make([]io.Writer, 0, len(outputs)+1)
	if extra != nil {
		writers = append(writers, extra)
	}
	for _, out := range outputs {
		switch out {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			file, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", out, err)
			}
			writers = append(writers, file)
		}
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

// jsonAttr shortens the built-in keys: ts in UTC RFC 3339, lowercase level,
// and file:line sources.
func jsonAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
		if a.Value.Kind() == slog.KindTime {
			a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			a.Value = slog.StringValue(sourceLabel(src))
		}
	}
	return a
}

func sourceLabel(src *slog.Source) string {
	return fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line)
}
