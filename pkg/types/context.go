package types

import (
	"context"
	"strings"
)

type contextKey string

// Context keys carried through requests.
const (
	ContextKeyUserID        contextKey = "user_id"
	ContextKeySessionID     contextKey = "session_id"
	ContextKeyRequestSource contextKey = "request_source"
)

// DefaultUserID is the learner used when the context carries none.
const DefaultUserID = "default_user"

// WithUserID returns a context carrying the learner id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserIDFromContext returns the learner id from ctx, or DefaultUserID.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUserID).(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return DefaultUserID
}
