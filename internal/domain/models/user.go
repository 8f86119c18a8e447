package models

import (
	"context"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// User is the identity extracted from the user directory token. The
// dispatch core never manages accounts; it only needs id and role.
type User struct {
	ID   uuid.UUID
	Role types.UserRole
}

var anonymous = &User{}

func AnonymousUser() *User {
	return anonymous
}

func (u *User) IsAnonymous() bool {
	return u == anonymous
}

type userCtxKey struct{}

// WithUser stores the authenticated user in the context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(userCtxKey{}).(*User)
	if !ok {
		return nil
	}
	return user
}
