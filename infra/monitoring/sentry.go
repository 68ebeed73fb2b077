// Package monitoring installs Sentry as the error tracker.
package monitoring

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/datagrid/config"
	coremon "github.com/kilianp07/datagrid/core/monitoring"
	"github.com/kilianp07/datagrid/core/persistence"
)

// NewSentryMonitor initializes Sentry using the provided configuration and
// returns a Monitor implementation. Without a DSN it returns a no-op monitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{}, nil
}

type sentryMonitor struct{}

// CaptureException reports err. Persistence failures are grouped by
// operation, class and driver code rather than by message.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if fp := Fingerprint(err); fp != nil {
			scope.SetFingerprint(fp)
		}
		sentry.CaptureException(err)
	})
}

func (s *sentryMonitor) ReportPanic(v any) { sentry.CurrentHub().Recover(v) }

func (s *sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }

// Fingerprint returns the grouping key of persistence failures, or nil for
// other errors.
func Fingerprint(err error) []string {
	var opErr *persistence.OperationError
	if !errors.As(err, &opErr) {
		return nil
	}
	code := opErr.Code
	if code == "" {
		code = "unknown"
	}
	return []string{"persistence", opErr.Op, opErr.Class, code}
}
