// Package httpserver wraps net/http with env-driven configuration,
// context-driven graceful shutdown and probe handlers.
//
// Usage:
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", slog.Any("error", err))
//	}
//
// Run blocks until the context is canceled, then shuts down within the
// configured timeout. Listen failures are wrapped with ErrStart and
// shutdown failures with ErrShutdown for errors.Is checks.
package httpserver
