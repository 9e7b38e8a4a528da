package middleware

import "context"

// Context keys are an unexported type so other packages cannot collide with
// or forge the values Auth stores here.
type contextKey string

const (
	ctxAccountID contextKey = "account_id"
	ctxRole      contextKey = "actor_role"
)

// WithAccountID stores the authenticated staff account id in the context.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccountID, accountID)
}

// WithRole stores the staff role for downstream authorization checks.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// AccountIDFromContext returns the stored account id, or "" when the
// request is unauthenticated.
func AccountIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxAccountID).(string)
	return v
}

// RoleFromContext returns the stored staff role, or "" when absent.
func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxRole).(string)
	return v
}
