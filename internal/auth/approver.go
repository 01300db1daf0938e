package auth

import (
	"context"
	"errors"
)

// ErrNotApproved is returned when a principal has not approved the current
// operation.
var ErrNotApproved = errors.New("principal has not approved this operation")

// Approver is the authorization oracle consumed by the engines. Require fails
// the whole operation unless the given principal has approved it; engines
// call it before any mutation so a denial leaves no partial state.
type Approver interface {
	Require(ctx context.Context, principal string) error
}

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
// Returns empty string if not found.
func PrincipalFromContext(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey{}).(string)
	return principal
}

// ContextApprover approves a principal when it matches the authenticated
// principal on the context, which the HTTP middleware sets from a validated
// token.
type ContextApprover struct{}

// Require implements Approver.
func (ContextApprover) Require(ctx context.Context, principal string) error {
	if principal == "" || PrincipalFromContext(ctx) != principal {
		return ErrNotApproved
	}
	return nil
}

// AllowAll approves every principal. For tests and local tooling only.
type AllowAll struct{}

// Require implements Approver.
func (AllowAll) Require(ctx context.Context, principal string) error { return nil }
