// Package logx configures the process-wide structured logger.
package logx

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar slog.LevelVar
	mu       sync.RWMutex
	base     *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	base = newLogger(os.Stdout)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))
}

// SetOutput redirects all subsequent log output to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	base = newLogger(w)
	mu.Unlock()
}

// SetLevel sets the minimum level by name; unknown names fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

// Named returns the shared logger tagged with a component name.
func Named(component string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With("component", component)
}
