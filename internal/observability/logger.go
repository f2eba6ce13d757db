// ABOUTME: Process-wide structured logger built on log/slog
// ABOUTME: Carries session and turn ids through context so every line of a turn is correlated
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type ctxKey string

const (
	ctxKeySessionID ctxKey = "session_id"
	ctxKeyTurnID    ctxKey = "turn_id"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// Init replaces the process logger. format is "json" or "text"; level is debug|info|warn|error.
// Logs go to w so stdio transports keep stdout clean.
func Init(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	l := slog.New(h)
	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Logger returns the process logger
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithSession stores the session and turn ids in ctx
func WithSession(ctx context.Context, sessionID, turnID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeySessionID, sessionID)
	return context.WithValue(ctx, ctxKeyTurnID, turnID)
}

// LoggerFromContext adds session_id and turn_id if present
func LoggerFromContext(ctx context.Context) *slog.Logger {
	l := Logger()
	if id, _ := ctx.Value(ctxKeySessionID).(string); id != "" {
		l = l.With("session_id", id)
	}
	if id, _ := ctx.Value(ctxKeyTurnID).(string); id != "" {
		l = l.With("turn_id", id)
	}
	return l
}
