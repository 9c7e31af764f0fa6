package utils

import (
	"context"

	"github.com/mmdatafocus/returns_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeySession       = appctx.ContextKeySession
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetSessionFromContext(ctx context.Context) (*appctx.Session, bool) {
	return appctx.GetSession(ctx)
}

func SetSessionInContext(ctx context.Context, session *appctx.Session) context.Context {
	return appctx.Set(ctx, ContextKeySession, session)
}

func GetAccountIdFromContext(ctx context.Context) (int, bool) {
	s, ok := appctx.GetSession(ctx)
	if !ok {
		return 0, false
	}
	return s.AccountId, true
}

func GetLoginIdFromContext(ctx context.Context) (string, bool) {
	s, ok := appctx.GetSession(ctx)
	if !ok {
		return "", false
	}
	return s.LoginId, true
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
