package sentry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/evergreen-ci/sage-sub002/core/config"
)

const flushTimeout = 2 * time.Second

// Setup initialises the global Sentry client. The returned flush func is
// safe to call when Sentry is disabled.
func Setup(cfg config.Config) (func(), error) {
	if !cfg.Sentry.Enabled() {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Env,
		Release:          fmt.Sprintf("%s@%s", cfg.OTel.ServiceName, cfg.OTel.ServiceVersion),
		EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing sentry: %w", err)
	}

	return func() { sentry.Flush(flushTimeout) }, nil
}
