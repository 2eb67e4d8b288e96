package auth

import (
	"context"

	"github.com/google/uuid"
)

type merchantCtxKey struct{}

// WithMerchantID stores the authenticated merchant ID in the context.
func WithMerchantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, merchantCtxKey{}, id)
}

// MerchantIDFromContext returns the authenticated merchant ID, if any.
func MerchantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(merchantCtxKey{}).(uuid.UUID)
	return id, ok
}
