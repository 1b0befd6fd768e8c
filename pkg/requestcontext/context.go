// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// The audit core attributes every change to an actor. Rather than reading an
// ambient global (a session object, a thread-local), the actor identity is
// carried explicitly in the context passed through every mutation and flush
// call. Middleware sets it, services read it, tests inject it.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithActorID(ctx, actorID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	actorIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UnknownActor is recorded when no actor identity is present in the context,
// e.g. system-initiated changes or background jobs.
const UnknownActor int64 = 0

// ActorID retrieves the acting user's identity from the context.
// Returns UnknownActor if not set.
func ActorID(ctx context.Context) int64 {
	if id, ok := ctx.Value(actorIDKey{}).(int64); ok {
		return id
	}
	return UnknownActor
}

// WithActorID injects an actor identity into the context.
func WithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actorID)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for tests that
// need deterministic timestamps without running the middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
