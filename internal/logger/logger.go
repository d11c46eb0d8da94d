package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	wailslogger "github.com/wailsapp/wails/v2/pkg/logger"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// New builds a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs the process-wide logger on stderr and makes it the slog default.
func Init(level string, json bool) *slog.Logger {
	l := New(os.Stderr, level, json)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

func ParseLevel(level string) slog.Level {
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

// Get returns the process-wide logger, initializing it at info if needed.
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		return Init("info", false)
	}
	return l
}

// With returns the process-wide logger with the given attributes.
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

// Wails routes the desktop shell's own log lines into l.
type Wails struct {
	l *slog.Logger
}

var _ wailslogger.Logger = (*Wails)(nil)

func NewWails(l *slog.Logger) *Wails {
	return &Wails{l: l.With("component", "wails")}
}

func (w *Wails) Print(message string)   { w.l.Info(message) }
func (w *Wails) Trace(message string)   { w.l.Debug(message, "trace", true) }
func (w *Wails) Debug(message string)   { w.l.Debug(message) }
func (w *Wails) Info(message string)    { w.l.Info(message) }
func (w *Wails) Warning(message string) { w.l.Warn(message) }
func (w *Wails) Error(message string)   { w.l.Error(message) }
func (w *Wails) Fatal(message string) {
	w.l.Error(message, "fatal", true)
	os.Exit(1)
}
