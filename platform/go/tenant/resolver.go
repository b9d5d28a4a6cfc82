package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoContext is the uniform "no context" result for membership resolution.
// Callers must not be able to tell a nonexistent club apart from a club where
// the user holds no ACTIVE membership; both collapse into this error.
var ErrNoContext = errors.New("tenant: no club context")

// Membership is the resolved output of a successful lookup.
type Membership struct {
	ClubID      uuid.UUID
	ClubSlug    string
	TierID      string
	Deactivated bool
	Roles       []string
}

// Resolver loads the caller's membership context within the club addressed by
// slug. This runs on every club-scoped request, so implementations must stay
// at a single round trip. Infrastructure failures surface as ordinary errors,
// distinct from ErrNoContext, so the pipeline can fail closed.
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, slug string) (Membership, error)
}

// ClubLookup loads a club by slug without any membership requirement. The
// guard pipeline uses it only for the fresh super-admin fallback.
type ClubLookup interface {
	LookupClub(ctx context.Context, slug string) (Membership, error)
}
