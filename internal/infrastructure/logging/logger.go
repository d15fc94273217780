package logging

import (
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/nerrad567/megunolink-mqtt/internal/infrastructure/config"
)

// serviceName tags every entry so link logs can be told apart from the
// broker's when both go to the same journal.
const serviceName = "megunolink-mqtt"

// componentKey is the attribute set by Component.
const componentKey = "component"

// Logger is the structured logger handed to every link component. The
// embedded *slog.Logger satisfies the small Logger interfaces declared by
// the link, command, stream and netwatch packages.
type Logger struct {
	*slog.Logger
}

// New builds the daemon logger from the logging section of the config.
// Entries go to stdout unless cfg.Output is "stderr", which keeps stdout
// free when the stream is fed from a pipe.
func New(cfg config.LoggingConfig, version string) *Logger {
	output := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}
	return NewWithWriter(cfg, version, output)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	handler := newHandler(cfg.Format, output, parseLevel(cfg.Level)).WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// newHandler returns a text handler for "text" and JSON for anything else.
func newHandler(format string, output io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(output, opts)
	}
	return slog.NewJSONHandler(output, opts)
}

// parseLevel maps debug, info, warn (or warning) and error to slog levels.
// Anything else logs at info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger carrying args on every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a child logger tagged component=name, the convention
// used for mqtt, link, command, stream, netwatch and api entries.
func (l *Logger) Component(name string) *Logger {
	return l.With(componentKey, name)
}

// Default is the bootstrap logger used until the config has been loaded:
// JSON on stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))}
}
