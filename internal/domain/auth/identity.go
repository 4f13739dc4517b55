// Package auth holds the caller identity consumed from the authentication
// service and the authorization predicates guarding order access.
package auth

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Roles issued by the authentication service.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the identity may not act on a resource.
	ErrForbidden = errors.New("not authorized")
)

// Identity is the authenticated principal behind a request.
type Identity struct {
	UserID string
	Role   string
}

// Owned is implemented by resources that belong to a single user.
type Owned interface {
	OwnerID() string
}

// IsAdmin reports whether the identity carries the admin role.
func IsAdmin(id Identity) bool {
	return id.UserID != "" && strings.EqualFold(id.Role, RoleAdmin)
}

// IsOwner reports whether the identity owns the resource.
func IsOwner(id Identity, res Owned) bool {
	return id.UserID != "" && res != nil && res.OwnerID() == id.UserID
}

// RequireAdmin fails with ErrForbidden unless the identity is an admin.
func RequireAdmin(id Identity) error {
	if !IsAdmin(id) {
		return errors.Wrap(ErrForbidden, "admin role required")
	}
	return nil
}

// RequireOwner fails with ErrForbidden unless the identity owns res.
func RequireOwner(id Identity, res Owned) error {
	if !IsOwner(id, res) {
		return errors.Wrap(ErrForbidden, "not the owner")
	}
	return nil
}

// RequireOwnerOrAdmin fails with ErrForbidden unless the identity owns res or
// is an admin.
func RequireOwnerOrAdmin(id Identity, res Owned) error {
	if IsOwner(id, res) || IsAdmin(id) {
		return nil
	}
	return errors.Wrap(ErrForbidden, "not the owner or an admin")
}

type identityKey struct{}

// WithIdentity stores the identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}
