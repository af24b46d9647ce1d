package auth

import "context"

type contextKey string

const userIDContextKey contextKey = "user-id"

// WithUserID returns a copy of ctx carrying the authenticated user's ID
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, id)
}

// UserIDFromContext returns the authenticated user's ID, if any
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDContextKey).(int64)
	return id, ok
}
