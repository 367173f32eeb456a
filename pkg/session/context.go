package session

import "context"

type ctxKey struct{}

// ContextWithID returns a context carrying the session ID, so lifecycle
// hooks (SSE, Kafka) can route events of a panel request to its session.
func ContextWithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, sessionID)
}

// IDFromContext returns the session ID stored by ContextWithID.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
