package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
	TokenKey  contextKey = "token"
)

// SessionInfo is what the auth middleware knows about the caller.
type SessionInfo struct {
	UserID uuid.UUID
	Role   string
	Token  string
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// GetTokenFromContext mendapatkan token dari context
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

func SetSessionContext(ctx context.Context, info SessionInfo) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, info.UserID)
	ctx = context.WithValue(ctx, RoleKey, info.Role)
	ctx = context.WithValue(ctx, TokenKey, info.Token)
	return ctx
}
