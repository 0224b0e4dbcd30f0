package middleware

import (
	"context"

	"github.com/craftora/backoffice/pkg/auth"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxCapability contextKey = "capability"
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

// CapabilityFromContext returns the authenticated admin's capability. The
// zero value means the request never passed the auth middleware.
func CapabilityFromContext(ctx context.Context) auth.Capability {
	if ctx == nil {
		return auth.Capability{}
	}
	if v, ok := ctx.Value(ctxCapability).(auth.Capability); ok {
		return v
	}
	return auth.Capability{}
}

// WithCapability injects a capability into the context. Exposed for tests.
func WithCapability(ctx context.Context, capability auth.Capability) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, capability.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(capability.Role))
	return context.WithValue(ctx, ctxCapability, capability)
}
