package auth

import (
	"context"

	"wb-aggregator/internal/model"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   int64
	User     *model.TelegramUser
	Internal bool
	Admin    bool
}

// Requester converts the principal for ownership checks.
func (p *Principal) Requester() model.Requester {
	return model.Requester{UserID: p.UserID, Internal: p.Internal}
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
