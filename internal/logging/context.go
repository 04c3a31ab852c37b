// Package logging provides correlation-ID-aware structured logging
// helpers shared by every core component, so a single session's log
// lines can be grepped out of a busy process by session/node/action ID.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	nodeKeyKey
	actionKeyKey
	attemptKey
)

// WithSessionID returns a context with the session ID set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithNodeKey returns a context with the current node key set.
func WithNodeKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, nodeKeyKey, key)
}

// WithActionKey returns a context with the current action key set.
func WithActionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, actionKeyKey, key)
}

// WithAttempt returns a context tagged with the retry controller's
// current attempt number for the action in scope. The first invocation
// of an action is attempt 1; a retry controller re-derives this context
// for every subsequent attempt rather than carrying one value for the
// whole action's lifetime, so log lines from a stale goroutine racing
// past its own timeout never get attributed to a later attempt.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// SessionID extracts the session ID from the context, or "" if absent.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// NodeKey extracts the node key from the context, or "" if absent.
func NodeKey(ctx context.Context) string {
	v, _ := ctx.Value(nodeKeyKey).(string)
	return v
}

// ActionKey extracts the action key from the context, or "" if absent.
func ActionKey(ctx context.Context) string {
	v, _ := ctx.Value(actionKeyKey).(string)
	return v
}

// Attempt extracts the current attempt number from the context, or 0 if
// absent (no retry controller has tagged this context yet).
func Attempt(ctx context.Context) int {
	v, _ := ctx.Value(attemptKey).(int)
	return v
}

// WithIDs sets all three correlation IDs on the context at once. Any
// empty value leaves the corresponding ID unset rather than clearing
// it, so a node-scoped context can be derived from a session-scoped
// one without re-specifying the session ID.
func WithIDs(ctx context.Context, sessionID, nodeKey, actionKey string) context.Context {
	if sessionID != "" {
		ctx = WithSessionID(ctx, sessionID)
	}
	if nodeKey != "" {
		ctx = WithNodeKey(ctx, nodeKey)
	}
	if actionKey != "" {
		ctx = WithActionKey(ctx, actionKey)
	}
	return ctx
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := SessionID(ctx); id != "" {
		logger = logger.With(slog.String("session_id", id))
	}
	if k := NodeKey(ctx); k != "" {
		logger = logger.With(slog.String("node_key", k))
	}
	if k := ActionKey(ctx); k != "" {
		logger = logger.With(slog.String("action_key", k))
	}
	if n := Attempt(ctx); n != 0 {
		logger = logger.With(slog.Int("attempt", n))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := SessionID(ctx); v != "" {
		r.AddAttrs(slog.String("session_id", v))
	}
	if v := NodeKey(ctx); v != "" {
		r.AddAttrs(slog.String("node_key", v))
	}
	if v := ActionKey(ctx); v != "" {
		r.AddAttrs(slog.String("action_key", v))
	}
	if v := Attempt(ctx); v != 0 {
		r.AddAttrs(slog.Int("attempt", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
