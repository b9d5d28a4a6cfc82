package guard

import (
	"github.com/clubstack/clubstack/platform/go/authz"
	"github.com/clubstack/clubstack/platform/go/tiers"
)

// Requirements declares what a route demands before its handler may run.
// One struct per route, interpreted by the pipeline in a fixed order; there is
// no reflection or annotation scanning anywhere.
type Requirements struct {
	// SuperAdmin requires the platform super-admin flag, read fresh from the
	// store on every request so demotions take effect immediately.
	SuperAdmin bool

	// ClubScoped routes carry a club slug in the path and need a resolved
	// membership context before any role or permission question makes sense.
	ClubScoped bool

	// AnyRole passes when the resolved role set intersects it.
	AnyRole []authz.Role

	// Permission passes when the resolved role set grants it.
	Permission authz.Permission

	// Features must ALL be enabled on the club's tier.
	Features []tiers.Feature

	// DeactivationExempt marks the few write routes that must keep working on
	// a deactivated club: reactivation and data-subject erasure.
	DeactivationExempt bool

	// SlugParam overrides the chi URL parameter carrying the club slug.
	// Empty means "clubSlug".
	SlugParam string
}

func (r Requirements) slugParam() string {
	if r.SlugParam != "" {
		return r.SlugParam
	}
	return "clubSlug"
}
