package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/clubstack/clubstack/domains/users/be/repo"
	"github.com/clubstack/clubstack/platform/go/persistence"
)

// Bootstrap handles post-registration super-admin decisions. The first-account
// path is evaluated inside the creating transaction (see
// persistence.CreateBootstrapCandidate); this type logs its outcome and runs
// the second path, promotion of an operator-designated email address.
type Bootstrap struct {
	repo            repo.Repository
	designatedEmail string
	logger          *zap.Logger
}

// NewBootstrap constructs the evaluator. designatedEmail may be empty, which
// disables the designated-address path entirely.
func NewBootstrap(r repo.Repository, designatedEmail string, logger *zap.Logger) *Bootstrap {
	if r == nil {
		panic("users repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Bootstrap{
		repo:            r,
		designatedEmail: strings.ToLower(strings.TrimSpace(designatedEmail)),
		logger:          logger,
	}
}

// EvaluateNewUser runs after a successful registration. bootstrapped reports
// whether the store already promoted the account as the platform's first
// user. Designated-address promotion failures are logged and swallowed; the
// returned record reflects the promotion when one happened.
func (b *Bootstrap) EvaluateNewUser(ctx context.Context, user persistence.User, bootstrapped bool) persistence.User {
	if bootstrapped {
		b.logger.Info("first account promoted to super-admin",
			zap.String("userId", user.UserID.String()))
		return user
	}
	if user.IsSuperAdmin {
		return user
	}

	if b.designatedEmail != "" && strings.EqualFold(user.Email, b.designatedEmail) {
		if err := b.repo.Promote(ctx, user.UserID); err != nil {
			b.logger.Error("designated super-admin promotion failed",
				zap.String("userId", user.UserID.String()),
				zap.Error(err))
			return user
		}
		b.logger.Info("designated super-admin promoted",
			zap.String("userId", user.UserID.String()))
		user.IsSuperAdmin = true
	}

	return user
}
