package contextutil

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
	loggerKey    contextKey = "logger"
)

// Actor is the authenticated caller as read from the access token.
type Actor struct {
	UserID string
	Role   string
}

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

func GetRequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey).(string); ok {
		return rid
	}
	return ""
}

// WithActor records the caller and, when a request logger is already on ctx,
// replaces it with one that carries user_id and role.
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		ctx = WithLogger(ctx, l.With(
			zap.String("user_id", actor.UserID),
			zap.String("role", actor.Role),
		))
	}
	return ctx
}

func GetActor(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

func GetUserID(ctx context.Context) string {
	a, _ := GetActor(ctx)
	return a.UserID
}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger never returns nil: request logger, then defaultLogger, then a no-op.
func GetLogger(ctx context.Context, defaultLogger *zap.Logger) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
			return l
		}
	}

	if defaultLogger != nil {
		return defaultLogger
	}

	return zap.NewNop()
}

type Metadata struct {
	RequestID string
	UserID    string
	Role      string
}

func ExtractMetadata(ctx context.Context) Metadata {
	a, _ := GetActor(ctx)
	return Metadata{
		RequestID: GetRequestID(ctx),
		UserID:    a.UserID,
		Role:      a.Role,
	}
}
