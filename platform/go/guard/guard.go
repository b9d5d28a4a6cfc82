// Package guard runs the ordered per-request authorization chain:
// authentication, super-admin requirement, membership context resolution,
// role/permission evaluation, tier feature gating, deactivation blocking.
// Each stage either passes control on or terminates the request; the ordering
// is load-bearing and must not be rearranged (see the stage comments).
package guard

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubstack/clubstack/platform/go/auth"
	"github.com/clubstack/clubstack/platform/go/authz"
	"github.com/clubstack/clubstack/platform/go/logging"
	"github.com/clubstack/clubstack/platform/go/tenant"
	"github.com/clubstack/clubstack/platform/go/tiers"
)

// SuperAdminStore reads the platform super-admin flag. It must hit the store,
// never a session cache: a demotion has to bite on the very next request.
type SuperAdminStore interface {
	IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// FeatureGate answers tier feature questions (see tiers.Gate).
type FeatureGate interface {
	Enabled(tierID string, feature tiers.Feature) (bool, error)
}

// Guard bundles the collaborators the pipeline needs.
type Guard struct {
	resolver    tenant.Resolver
	clubs       tenant.ClubLookup
	superAdmins SuperAdminStore
	features    FeatureGate
	logger      *zap.Logger
}

// New constructs a Guard.
func New(resolver tenant.Resolver, clubs tenant.ClubLookup, superAdmins SuperAdminStore, features FeatureGate, logger *zap.Logger) *Guard {
	if resolver == nil {
		panic("guard: resolver is required")
	}
	if clubs == nil {
		panic("guard: club lookup is required")
	}
	if superAdmins == nil {
		panic("guard: super admin store is required")
	}
	if features == nil {
		panic("guard: feature gate is required")
	}
	if logger == nil {
		panic("guard: logger is required")
	}

	return &Guard{
		resolver:    resolver,
		clubs:       clubs,
		superAdmins: superAdmins,
		features:    features,
		logger:      logger,
	}
}

// Require returns chi middleware enforcing the declared requirements.
func (g *Guard) Require(req Requirements) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.FromRequest(r, g.logger)

			// Stage 1: authentication. Nothing is disclosed to anonymous
			// callers, so this must come before every other check.
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok || identity == nil {
				denyUnauthenticated(w)
				return
			}

			rc := tenant.Context{
				UserID: identity.UserID,
				Email:  identity.Email,
			}

			// Stage 2: super-admin requirement, read fresh from the store.
			// Checked before club resolution so platform-only routes never
			// need a club in their path.
			if req.SuperAdmin {
				isSuper, err := g.superAdmins.IsSuperAdmin(r.Context(), identity.UserID)
				if err != nil {
					logger.Error("super admin lookup failed", zap.Error(err))
					denyInternal(w)
					return
				}
				if !isSuper {
					denyForbidden(w, CodeSuperAdminRequired, "platform super-admin required")
					return
				}
				rc.IsSuperAdmin = true
			}

			// Stage 3: membership context. NOT_FOUND on either "club missing"
			// or "not a member" so club existence cannot be probed.
			if req.ClubScoped {
				slug := chi.URLParam(r, req.slugParam())
				if slug == "" {
					denyNotFound(w)
					return
				}

				membership, err := g.resolver.Resolve(r.Context(), identity.UserID, slug)
				switch {
				case err == nil:
					applyMembership(&rc, membership)
				case errors.Is(err, tenant.ErrNoContext):
					override, overrideErr := g.superAdminOverride(r.Context(), &rc, identity.UserID, slug)
					if overrideErr != nil {
						logger.Error("membership fallback failed", zap.Error(overrideErr))
						denyInternal(w)
						return
					}
					if !override {
						denyNotFound(w)
						return
					}
				default:
					// Fail closed: an unavailable membership lookup is a
					// denial, never an implicit pass.
					logger.Error("membership resolution failed", zap.String("club_slug", slug), zap.Error(err))
					denyInternal(w)
					return
				}
			}

			// Stage 4: roles and permissions against the resolved role set.
			// The platform override short-circuits here; it was loaded fresh
			// in stage 2 or the stage-3 fallback, never from the token.
			if !rc.IsSuperAdmin {
				if len(req.AnyRole) > 0 && !authz.HasAnyRole(rc.Roles, req.AnyRole) {
					denyForbidden(w, CodeForbidden, "insufficient role")
					return
				}
				if req.Permission != "" && !authz.HasPermission(rc.Roles, req.Permission) {
					denyForbidden(w, CodeForbidden, "insufficient permission")
					return
				}
			}

			// Stage 5: tier features, AND-combined. An unknown feature name is
			// a wiring bug and fails the request hard instead of denying.
			for _, feature := range req.Features {
				enabled, err := g.features.Enabled(rc.TierID, feature)
				if err != nil {
					logger.Error("feature gate failed", zap.String("feature", string(feature)), zap.Error(err))
					denyInternal(w)
					return
				}
				if !enabled {
					denyForbidden(w, CodeFeatureNotAvailable, "feature not available on current tier")
					return
				}
			}

			// Stage 6: deactivation, last among the gates so deactivation
			// state never leaks to callers who would have been denied anyway.
			if rc.HasClub() && !mayMutate(rc.Deactivated, mutatingMethods[r.Method], req.DeactivationExempt) {
				denyForbidden(w, CodeClubDeactivated, "club is deactivated")
				return
			}

			ctx := tenant.WithContext(r.Context(), rc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// superAdminOverride handles the case where an authenticated caller has no
// membership in the addressed club but holds the platform flag: the club is
// looked up directly and an empty-role context is synthesized. For everyone
// else the uniform NOT_FOUND stands.
func (g *Guard) superAdminOverride(ctx context.Context, rc *tenant.Context, userID uuid.UUID, slug string) (bool, error) {
	if !rc.IsSuperAdmin {
		isSuper, err := g.superAdmins.IsSuperAdmin(ctx, userID)
		if err != nil {
			return false, err
		}
		if !isSuper {
			return false, nil
		}
		rc.IsSuperAdmin = true
	}

	club, err := g.clubs.LookupClub(ctx, slug)
	if err != nil {
		if errors.Is(err, tenant.ErrNoContext) {
			return false, nil
		}
		return false, err
	}

	applyMembership(rc, club)
	return true, nil
}

func applyMembership(rc *tenant.Context, m tenant.Membership) {
	rc.ClubID = m.ClubID
	rc.ClubSlug = m.ClubSlug
	rc.TierID = m.TierID
	rc.Deactivated = m.Deactivated

	roles := make([]authz.Role, 0, len(m.Roles))
	for _, raw := range m.Roles {
		if role, ok := authz.ParseRole(raw); ok {
			roles = append(roles, role)
		}
	}
	rc.Roles = roles
}
