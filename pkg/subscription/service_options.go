package subscription

import (
	"log/slog"
	"time"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/payment"
)

// ServiceOption configures the lifecycle service.
type ServiceOption func(*service)

// WithProvider registers a payment provider for checkout creation and event
// application. Registering the same name twice panics to catch wiring bugs.
func WithProvider(p payment.Provider) ServiceOption {
	return func(s *service) {
		if p == nil {
			panic("subscription: nil payment provider")
		}
		if _, ok := s.providers[p.Name()]; ok {
			panic("subscription: duplicate payment provider " + p.Name())
		}
		s.providers[p.Name()] = p
	}
}

// WithNotifier sets the lifecycle notification sink.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		s.notifier = n
	}
}

// WithObserver sets the event outcome observer.
func WithObserver(o Observer) ServiceOption {
	return func(s *service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the service logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source, used by tests to control trial and
// billing period boundaries.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}
