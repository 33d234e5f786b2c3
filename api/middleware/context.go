package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the authenticated user id and role, when present.
func ActorFromContext(ctx context.Context) (*uuid.UUID, enums.UserRole) {
	role := enums.UserRole(RoleFromContext(ctx))
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return nil, role
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, role
	}
	return &id, role
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
