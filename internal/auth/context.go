package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const sessionKey contextKey = "session_id"

// WithSessionID tags outgoing calls with the editing session they belong to.
func WithSessionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

func SessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(sessionKey).(uuid.UUID)
	return id, ok
}
