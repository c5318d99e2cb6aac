package billing

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/entitlement"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
	"github.com/nakulaynzocto/safein-backend-sub000/pkg/ttlstore"
)

const defaultSessionTTL = 24 * time.Hour

// Module bundles the billing surface: subscription endpoints for resolved
// tenants and the webhook ingress per payment provider.
type Module struct {
	svc        subscription.Service
	gate       *entitlement.Gate
	sessions   ttlstore.Store
	sessionTTL time.Duration
	logger     *slog.Logger
}

// Option configures the billing module.
type Option func(*Module)

// WithLogger sets the module logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCheckoutSessions records pending checkout sessions in the given TTL
// store so an open order can be looked up while it is still payable.
func WithCheckoutSessions(store ttlstore.Store) Option {
	return func(m *Module) {
		m.sessions = store
	}
}

// WithSessionTTL overrides how long a pending checkout session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(m *Module) {
		if ttl > 0 {
			m.sessionTTL = ttl
		}
	}
}

// New creates the billing module. Panics on nil required dependencies.
func New(svc subscription.Service, gate *entitlement.Gate, opts ...Option) *Module {
	if svc == nil {
		panic("billing: subscription service is required")
	}
	if gate == nil {
		panic("billing: entitlement gate is required")
	}

	m := &Module{
		svc:        svc,
		gate:       gate,
		sessionTTL: defaultSessionTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Router returns the tenant-facing billing routes. Mount behind the tenant
// resolution middleware; every handler reads the tenant id from the request
// context.
//
//	r.Route("/billing", func(r chi.Router) {
//	    r.Use(resolver.Middleware(accountFromSession))
//	    r.Mount("/", billingModule.Router())
//	})
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/subscription", m.handleGetSubscription)
	r.Get("/subscription/history", m.handleListSubscriptions)
	r.Get("/trial-status", m.handleTrialStatus)
	r.Get("/usage/{resource}", m.handleUsage)
	r.Post("/trial", m.handleStartTrial)
	r.Post("/checkout", m.handleCreateCheckout)
	r.Get("/checkout/{provider}/{orderID}", m.handlePendingCheckout)
	r.Post("/cancel", m.handleCancel)

	return r
}

// WebhookRouter returns the provider webhook ingress. Mount it without any
// authentication middleware; signature verification is the authentication.
func (m *Module) WebhookRouter() chi.Router {
	r := chi.NewRouter()

	r.Post("/razorpay", m.handleWebhook("razorpay"))
	r.Post("/paddle", m.handleWebhook("paddle"))

	return r
}
