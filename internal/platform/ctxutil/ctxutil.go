// Package ctxutil carries request-scoped caller identity and trace ids on a
// context.Context.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type (
	authKey  struct{}
	traceKey struct{}
)

// AuthData is the caller identity resolved by the HTTP auth middleware.
type AuthData struct {
	TenantID uuid.UUID
	Subject  string
	Admin    bool
}

// TraceData correlates log lines and error bodies with a request.
type TraceData struct {
	TraceID   string
	RequestID string
}

func with[V any](ctx context.Context, key any, v *V) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func get[V any](ctx context.Context, key any) *V {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(key).(*V)
	return v
}

func WithAuthData(ctx context.Context, ad *AuthData) context.Context {
	return with(ctx, authKey{}, ad)
}

func GetAuthData(ctx context.Context) *AuthData { return get[AuthData](ctx, authKey{}) }

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return with(ctx, traceKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData { return get[TraceData](ctx, traceKey{}) }

// TenantID returns the authenticated tenant, or uuid.Nil when none is attached.
func TenantID(ctx context.Context) uuid.UUID {
	if ad := GetAuthData(ctx); ad != nil {
		return ad.TenantID
	}
	return uuid.Nil
}
