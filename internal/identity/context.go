package identity

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ActorFromContext returns the current actor, falling back to the zero
// Actor when no session is attached.
func ActorFromContext(ctx context.Context) Actor {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.Actor()
	}
	return Actor{}
}
