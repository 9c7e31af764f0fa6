package appctx

import (
	"context"
	"time"
)

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> utils).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeySession       = ContextKey("Session")
	ContextKeyCorrelationId = ContextKey("CorrelationId")
)

// Session is the authenticated caller of a request.
// It only lives in the request context; nothing keeps it process-wide.
type Session struct {
	Token     string    `json:"-"`
	TokenId   string    `json:"token_id"`
	AccountId int       `json:"account_id"`
	LoginId   string    `json:"login_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	StoreCode string    `json:"store_code,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func GetSession(ctx context.Context) (*Session, bool) {
	v, ok := ctx.Value(ContextKeySession).(*Session)
	return v, ok && v != nil
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
