package forge

import "context"

type sessionContextKey struct{}

// WithSession attaches the session currently being evaluated to ctx.
// The dynamic property evaluator calls this before invoking an
// ExternalExecutor, so a prefix handler that needs the session's prior
// responses (e.g. a "cel|"/"jq|" expression reading lastResponse) can
// recover it without ExternalExecutor's signature carrying a session
// parameter every implementation must thread through.
func WithSession(ctx context.Context, session ITreeSession) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext recovers a session attached by WithSession. ok is
// false if no session was attached, which external executors that
// don't need session data can simply ignore.
func SessionFromContext(ctx context.Context) (ITreeSession, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(ITreeSession)
	return session, ok
}
