package middleware

import "context"

type contextKey string

const (
	ctxHolderID    contextKey = "holder_id"
	ctxDisplayName contextKey = "display_name"
)

func HolderIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxHolderID).(string); ok {
		return v
	}
	return ""
}

func DisplayNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDisplayName).(string); ok {
		return v
	}
	return ""
}

// WithHolderID injects the shopper identifier into the context.
func WithHolderID(ctx context.Context, holderID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxHolderID, holderID)
}
