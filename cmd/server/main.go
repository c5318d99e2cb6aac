// Command server runs the SafeIn billing backend: tenant-facing
// subscription endpoints, payment provider webhook ingress, and the
// subscription expiry sweeper.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nakulaynzocto/safein-backend-sub000/modules/billing"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/config"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/entitlement"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/httpserver"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/logger"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/mongo"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/notify"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/plan"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/redis"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/tenant"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/ttlstore"
)

type serverConfig struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Database      string        `env:"MONGODB_DATABASE" envDefault:"safein"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SessionTTL    time.Duration `env:"CHECKOUT_SESSION_TTL" envDefault:"24h"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg serverConfig
	config.MustLoad(&cfg)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithService("safein-billing"),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	var mongoCfg mongo.Config
	config.MustLoad(&mongoCfg)
	db, err := mongo.NewWithDatabase(ctx, mongoCfg, cfg.Database)
	if err != nil {
		log.Error("mongo connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Error("mongo disconnect failed", slog.Any("error", err))
		}
	}()

	subStore := subscription.NewMongoSubscriptionStore(db)
	idemStore := subscription.NewMongoIdempotencyStore(db)
	if err := subStore.EnsureIndexes(ctx); err != nil {
		log.Error("subscription index setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := idemStore.EnsureIndexes(ctx); err != nil {
		log.Error("idempotency index setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.Error("redis connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()
	sessions := ttlstore.NewRedisStore(redisClient, "billing")

	catalog, err := plan.NewCatalog(ctx, plan.NewInMemSource(safeinPlans()))
	if err != nil {
		log.Error("plan catalog invalid", slog.Any("error", err))
		os.Exit(1)
	}

	accounts := tenant.NewMongoAccountStore(db)
	workers := tenant.NewMongoWorkerStore(db)
	resolver := tenant.NewResolver(accounts, workers)
	defer resolver.Close()

	svcOpts := []subscription.ServiceOption{
		subscription.WithLogger(log),
		subscription.WithNotifier(buildNotifier(log, accounts)),
	}
	svcOpts = append(svcOpts, providerOptions(log)...)

	svc := subscription.NewService(catalog, subStore, idemStore, svcOpts...)
	gate := entitlement.NewGate(svc, entitlement.MongoCounters(db))

	module := billing.New(svc, gate,
		billing.WithLogger(log),
		billing.WithCheckoutSessions(sessions),
		billing.WithSessionTTL(cfg.SessionTTL),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/billing", func(r chi.Router) {
		r.Use(tenant.Middleware(resolver, accountIDFromHeader, tenant.WithLogger(log)))
		r.Mount("/", module.Router())
	})
	r.Mount("/webhooks", module.WebhookRouter())
	r.Get("/healthz", httpserver.HealthCheckHandler(log,
		mongo.Healthcheck(db.Client()),
		redis.Healthcheck(redisClient),
	))

	sweeper := billing.NewSweeper(svc,
		billing.WithSweepInterval(cfg.SweepInterval),
		billing.WithSweeperLogger(log),
	)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sweeper stopped", slog.Any("error", err))
		}
	}()

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	srv := httpserver.New(srvCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// providerOptions builds service options for every payment provider whose
// credentials are present. A provider with missing credentials is skipped
// with a warning rather than failing startup; webhook routes for it answer
// 404.
func providerOptions(log *slog.Logger) []subscription.ServiceOption {
	var opts []subscription.ServiceOption

	var rzpCfg payment.RazorpayConfig
	if err := config.Load(&rzpCfg); err != nil {
		log.Warn("razorpay provider disabled", slog.Any("error", err))
	} else {
		p, err := payment.NewRazorpayProvider(rzpCfg)
		if err != nil {
			log.Warn("razorpay provider disabled", slog.Any("error", err))
		} else {
			opts = append(opts, subscription.WithProvider(p))
		}
	}

	var paddleCfg payment.PaddleConfig
	if err := config.Load(&paddleCfg); err != nil {
		log.Warn("paddle provider disabled", slog.Any("error", err))
	} else {
		p, err := payment.NewPaddleProvider(paddleCfg)
		if err != nil {
			log.Warn("paddle provider disabled", slog.Any("error", err))
		} else {
			opts = append(opts, subscription.WithProvider(p))
		}
	}

	if len(opts) == 0 {
		log.Warn("no payment providers configured")
	}
	return opts
}

// buildNotifier returns the Postmark email notifier when its credentials
// are configured, falling back to a log-only notifier otherwise. Recipient
// addresses come from the owning account's email.
func buildNotifier(log *slog.Logger, accounts tenant.AccountStore) subscription.Notifier {
	var emailCfg notify.EmailConfig
	if err := config.Load(&emailCfg); err != nil {
		log.Warn("email notifications disabled", slog.Any("error", err))
		return notify.NewSlogNotifier(log)
	}

	n, err := notify.NewEmailNotifier(emailCfg, func(ctx context.Context, tenantID uuid.UUID) (string, error) {
		acct, err := accounts.GetByID(ctx, tenantID)
		if err != nil {
			return "", err
		}
		return acct.Email, nil
	})
	if err != nil {
		log.Warn("email notifications disabled", slog.Any("error", err))
		return notify.NewSlogNotifier(log)
	}
	return n
}

// accountIDFromHeader trusts the authenticated account id injected by the
// auth gateway in front of this service.
func accountIDFromHeader(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-Account-ID"))
}

// safeinPlans is the compiled-in plan catalog. Provider price ids map
// checkout sessions and webhook payloads back to these plans.
func safeinPlans() map[string]plan.Plan {
	return map[string]plan.Plan{
		"free-trial": {
			ID:          "free-trial",
			Name:        "Free Trial",
			Description: "14-day trial with capped employees, visitors and appointments",
			Type:        plan.TypeFree,
			Cycle:       plan.BillingCycleNone,
			TrialDays:   14,
			Public:      true,
		},
		"starter-monthly": {
			ID:              "starter-monthly",
			Name:            "Starter",
			Description:     "Monthly starter plan",
			Type:            plan.TypeStarter,
			Cycle:           plan.BillingCycleMonthly,
			Price:           plan.Money{Amount: 99900, Currency: "INR"},
			ProviderPriceID: "pri_starter_monthly",
			Public:          true,
		},
		"premium-monthly": {
			ID:              "premium-monthly",
			Name:            "Premium",
			Description:     "Monthly premium plan",
			Type:            plan.TypePremium,
			Cycle:           plan.BillingCycleMonthly,
			Price:           plan.Money{Amount: 299900, Currency: "INR"},
			ProviderPriceID: "pri_premium_monthly",
			Public:          true,
		},
		"premium-annual": {
			ID:              "premium-annual",
			Name:            "Premium Annual",
			Description:     "Annual premium plan, two months free",
			Type:            plan.TypePremium,
			Cycle:           plan.BillingCycleAnnual,
			Price:           plan.Money{Amount: 2999000, Currency: "INR"},
			ProviderPriceID: "pri_premium_annual",
			Public:          true,
		},
	}
}
