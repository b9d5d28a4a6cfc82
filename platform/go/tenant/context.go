package tenant

import (
	"context"

	"github.com/google/uuid"

	"github.com/clubstack/clubstack/platform/go/authz"
)

// Context captures the per-request authorization decision inputs once the
// guard pipeline has resolved them. It never outlives the request: handlers
// read it from the request context, and nothing persists it.
type Context struct {
	UserID       uuid.UUID
	Email        string
	IsSuperAdmin bool

	// Club fields are zero for platform-level routes with no club in the path.
	ClubID      uuid.UUID
	ClubSlug    string
	TierID      string
	Roles       []authz.Role
	Deactivated bool
}

// HasClub reports whether a club context was resolved for this request.
func (c Context) HasClub() bool {
	return c.ClubID != uuid.Nil
}

type ctxKey string

const contextKey ctxKey = "CLUBSTACK_CLUB_CONTEXT"

// WithContext returns a derived context carrying the resolved club Context.
func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, contextKey, c)
}

// FromContext extracts the club Context and a boolean indicating presence.
func FromContext(ctx context.Context) (Context, bool) {
	v := ctx.Value(contextKey)
	if v == nil {
		return Context{}, false
	}

	c, ok := v.(Context)
	return c, ok
}
