package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	clubshandler "github.com/clubstack/clubstack/domains/clubs/be/handler"
	clubsrepo "github.com/clubstack/clubstack/domains/clubs/be/repo"
	clubsservice "github.com/clubstack/clubstack/domains/clubs/be/service"
	financehandler "github.com/clubstack/clubstack/domains/finance/be/handler"
	financerepo "github.com/clubstack/clubstack/domains/finance/be/repo"
	financeservice "github.com/clubstack/clubstack/domains/finance/be/service"
	membershandler "github.com/clubstack/clubstack/domains/members/be/handler"
	membersrepo "github.com/clubstack/clubstack/domains/members/be/repo"
	membersservice "github.com/clubstack/clubstack/domains/members/be/service"
	usershandler "github.com/clubstack/clubstack/domains/users/be/handler"
	usersrepo "github.com/clubstack/clubstack/domains/users/be/repo"
	usersservice "github.com/clubstack/clubstack/domains/users/be/service"
	platformauth "github.com/clubstack/clubstack/platform/go/auth"
	"github.com/clubstack/clubstack/platform/go/authz"
	"github.com/clubstack/clubstack/platform/go/guard"
	platformlogging "github.com/clubstack/clubstack/platform/go/logging"
	platformmiddleware "github.com/clubstack/clubstack/platform/go/middleware"
	"github.com/clubstack/clubstack/platform/go/persistence"
	"github.com/clubstack/clubstack/platform/go/tiers"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"hmac"` // hmac | unsigned
	JWTSecret       string        `env:"JWT_SECRET"`                      // required when AUTH_PROVIDER=hmac
	SuperAdminEmail string        `env:"SUPER_ADMIN_EMAIL"`               // optional designated bootstrap address
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	userStore, err := persistence.NewUserStore(pool)
	if err != nil {
		logger.Fatal("init user store", zap.Error(err))
	}

	clubStore, err := persistence.NewClubStore(pool)
	if err != nil {
		logger.Fatal("init club store", zap.Error(err))
	}

	membershipStore, err := persistence.NewMembershipStore(pool)
	if err != nil {
		logger.Fatal("init membership store", zap.Error(err))
	}

	memberStore, err := persistence.NewMemberStore(pool)
	if err != nil {
		logger.Fatal("init member store", zap.Error(err))
	}

	ledgerStore, err := persistence.NewLedgerStore(pool)
	if err != nil {
		logger.Fatal("init ledger store", zap.Error(err))
	}

	gate, err := tiers.NewGate()
	if err != nil {
		logger.Fatal("init tier gate", zap.Error(err))
	}

	userRepo := usersrepo.NewPostgresRepository(userStore, membershipStore)
	bootstrap := usersservice.NewBootstrap(userRepo, cfg.SuperAdminEmail, logger)
	userService := usersservice.New(userRepo, bootstrap)
	userHTTPHandler := usershandler.New(userService, logger)

	clubRepo := clubsrepo.NewPostgresRepository(clubStore, membershipStore)
	clubService := clubsservice.New(clubRepo, gate)
	clubHTTPHandler := clubshandler.New(clubService, logger)

	memberRepo := membersrepo.NewPostgresRepository(memberStore)
	memberService := membersservice.New(memberRepo)
	memberHTTPHandler := membershandler.New(memberService, logger)

	financeRepo := financerepo.NewPostgresRepository(ledgerStore)
	financeService := financeservice.New(financeRepo)
	financeHTTPHandler := financehandler.New(financeService, logger)

	authMiddleware := buildAuthMiddleware(cfg, logger)

	// ClubStore satisfies both the resolver and the club lookup side of the
	// pipeline; membership resolution is a single joined query.
	authGuard := guard.New(clubStore, clubStore, userStore, gate, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)

	// Authenticated, no club in the path.
	apiRouter.Group(func(r chi.Router) {
		r.Use(authGuard.Require(guard.Requirements{}))
		r.Post("/auth/signup", userHTTPHandler.Signup)
		r.Get("/me", userHTTPHandler.Me)
	})

	// Platform administration.
	apiRouter.Route("/admin", func(r chi.Router) {
		r.Use(authGuard.Require(guard.Requirements{SuperAdmin: true}))
		r.Get("/users", userHTTPHandler.List)
		r.Get("/users/{userId}", userHTTPHandler.Get)
		r.Post("/users/{userId}/promote", userHTTPHandler.Promote)
		r.Post("/users/{userId}/demote", userHTTPHandler.Demote)
		r.Post("/clubs", clubHTTPHandler.Create)
		r.Get("/clubs", clubHTTPHandler.List)
		r.Put("/clubs/{clubSlug}/tier", clubHTTPHandler.UpdateTier)
	})

	apiRouter.Route("/clubs/{clubSlug}", func(r chi.Router) {
		clubScoped := func(req guard.Requirements) func(http.Handler) http.Handler {
			req.ClubScoped = true
			return authGuard.Require(req)
		}

		r.With(clubScoped(guard.Requirements{Permission: authz.PermClubRead})).
			Get("/settings", clubHTTPHandler.GetSettings)
		r.With(clubScoped(guard.Requirements{Permission: authz.PermClubUpdate})).
			Patch("/settings", clubHTTPHandler.UpdateSettings)
		r.With(clubScoped(guard.Requirements{Permission: authz.PermClubDeactivate})).
			Post("/deactivate", clubHTTPHandler.Deactivate)
		r.With(clubScoped(guard.Requirements{Permission: authz.PermClubReactivate, DeactivationExempt: true})).
			Post("/reactivate", clubHTTPHandler.Reactivate)

		r.With(clubScoped(guard.Requirements{Permission: authz.PermMembershipRead})).
			Get("/memberships", clubHTTPHandler.ListMemberships)
		r.With(clubScoped(guard.Requirements{Permission: authz.PermMembershipUpdate})).
			Post("/memberships", clubHTTPHandler.AddMembership)
		r.With(clubScoped(guard.Requirements{Permission: authz.PermMembershipUpdate})).
			Patch("/memberships/{userId}/roles", clubHTTPHandler.UpdateMembershipRoles)
		r.With(clubScoped(guard.Requirements{Permission: authz.PermMembershipRemove})).
			Delete("/memberships/{userId}", clubHTTPHandler.RemoveMembership)
		r.With(clubScoped(guard.Requirements{AnyRole: []authz.Role{authz.RoleOwner}})).
			Post("/memberships/transfer-ownership", clubHTTPHandler.TransferOwnership)

		r.Route("/members", func(r chi.Router) {
			r.With(clubScoped(guard.Requirements{Permission: authz.PermMemberRead})).
				Get("/", memberHTTPHandler.List)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermMemberCreate})).
				Post("/", memberHTTPHandler.Create)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermMemberCreate})).
				Post("/import", memberHTTPHandler.Import)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermMemberRead})).
				Get("/{memberId}", memberHTTPHandler.Get)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermMemberUpdate})).
				Patch("/{memberId}", memberHTTPHandler.Update)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermMemberDelete})).
				Delete("/{memberId}", memberHTTPHandler.Delete)
			// Erasure stays available on deactivated clubs.
			r.With(clubScoped(guard.Requirements{Permission: authz.PermMemberDelete, DeactivationExempt: true})).
				Post("/{memberId}/erase", memberHTTPHandler.Erase)
		})

		r.Route("/finance", func(r chi.Router) {
			r.With(clubScoped(guard.Requirements{Permission: authz.PermFinanceRead})).
				Get("/accounts", financeHTTPHandler.ListAccounts)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermFinanceCreate})).
				Post("/accounts", financeHTTPHandler.CreateAccount)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermFinanceRead})).
				Get("/accounts/{accountId}", financeHTTPHandler.GetAccount)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermFinanceUpdate})).
				Post("/accounts/{accountId}/adjust", financeHTTPHandler.AdjustBalance)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermReportRead, Features: []tiers.Feature{tiers.FeatureReports}})).
				Get("/reports/summary", financeHTTPHandler.SummaryReport)
			r.With(clubScoped(guard.Requirements{Permission: authz.PermFinanceCreate, Features: []tiers.Feature{tiers.FeatureSEPA}})).
				Post("/sepa-exports", financeHTTPHandler.SEPAExport)
		})
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildAuthMiddleware(cfg config, logger *zap.Logger) func(http.Handler) http.Handler {
	switch cfg.AuthProvider {
	case "hmac":
		if cfg.JWTSecret == "" {
			logger.Fatal("jwt secret required when AUTH_PROVIDER=hmac")
		}
		return platformauth.Bearer(platformauth.HMACTokenVerifier([]byte(cfg.JWTSecret)), platformauth.DefaultIdentityExtractor)
	case "unsigned":
		// Claims are trusted as-is. Local development only.
		logger.Warn("running with unsigned token verification")
		return platformauth.Bearer(platformauth.UnsignedTokenVerifier(), platformauth.DefaultIdentityExtractor)
	default:
		logger.Fatal("invalid AUTH_PROVIDER (use hmac or unsigned)", zap.String("provider", cfg.AuthProvider))
		return nil
	}
}
