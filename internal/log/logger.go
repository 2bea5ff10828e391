// Package log is the leveled logger used by the sandbox CLI and pipeline.
package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level represents log severity levels
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Logger defines structured logging methods
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level Level)
	SetJSONOutput(enabled bool)
}

// Config holds configuration for the logger
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer // defaults to os.Stderr
	NoColor    bool
}

// DefaultLogger writes one line per entry to its output.
type DefaultLogger struct {
	mu         sync.Mutex
	level      Level
	jsonOutput bool
	out        io.Writer
	colors     bool
	now        func() time.Time
}

var (
	defaultLogger *DefaultLogger
	once          sync.Once
)

// New creates a logger. Colours are used only when the output is a terminal
// and NO_COLOR is unset.
func New(cfg Config) *DefaultLogger {
	l := &DefaultLogger{
		level:      cfg.Level,
		jsonOutput: cfg.JSONOutput,
		out:        cfg.Output,
		now:        time.Now,
	}
	if l.out == nil {
		l.out = os.Stderr
	}
	l.colors = !cfg.NoColor && os.Getenv("NO_COLOR") == "" && isTerminal(l.out)
	return l
}

// Default returns the process-wide logger writing to stderr.
func Default() *DefaultLogger {
	once.Do(func() {
		defaultLogger = New(Config{Level: InfoLevel})
	})
	return defaultLogger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// formatMessage appends key=value pairs to msg. A leading odd argument is
// appended bare.
func formatMessage(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}

	var sb strings.Builder
	sb.WriteString(msg)

	if len(args)%2 != 0 {
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprintf("%v", args[0]))
		args = args[1:]
	}

	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(fmt.Sprintf("%v", args[i+1]))
	}

	return sb.String()
}

func fields(args ...any) map[string]any {
	if len(args)%2 != 0 {
		args = args[1:]
	}
	out := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			v := args[i+1]
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			out[key] = v
		}
	}
	return out
}

func (l *DefaultLogger) colorize(level Level, msg string) string {
	if !l.colors {
		return msg
	}
	return color(level) + msg + "\033[0m"
}

func color(level Level) string {
	switch level {
	case DebugLevel:
		return "\033[36m" // Cyan
	case InfoLevel:
		return "\033[32m" // Green
	case WarnLevel:
		return "\033[33m" // Yellow
	case ErrorLevel:
		return "\033[31m" // Red
	default:
		return ""
	}
}

func (l *DefaultLogger) log(level Level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	timestamp := l.now().Format("2006-01-02 15:04:05")

	if l.jsonOutput {
		entry := map[string]any{
			"timestamp": timestamp,
			"level":     level.String(),
			"message":   msg,
		}
		if f := fields(args...); len(f) > 0 {
			entry["fields"] = f
		}
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.out, string(data))
		return
	}

	fmt.Fprintf(l.out, "[%s] %s: %s\n", timestamp, level, l.colorize(level, formatMessage(msg, args...)))
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, args ...any) { l.log(DebugLevel, msg, args...) }

// Info logs an info message
func (l *DefaultLogger) Info(msg string, args ...any) { l.log(InfoLevel, msg, args...) }

// Warn logs a warning message
func (l *DefaultLogger) Warn(msg string, args ...any) { l.log(WarnLevel, msg, args...) }

// Error logs an error message
func (l *DefaultLogger) Error(msg string, args ...any) { l.log(ErrorLevel, msg, args...) }

// SetLevel sets the minimum log level
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetJSONOutput enables or disables JSON output
func (l *DefaultLogger) SetJSONOutput(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jsonOutput = enabled
}

// Nop discards everything.
var Nop Logger = nop{}

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any) {}
func (nop) Warn(string, ...any) {}
func (nop) Error(string, ...any) {}
func (nop) SetLevel(Level) {}
func (nop) SetJSONOutput(bool) {}
