// Package telemetry wraps Sentry tracing for the service layer.
package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

const serviceName = "skimzy"

// unsampledTransactions are never traced; they are polled by health checks.
var unsampledTransactions = map[string]bool{
	"GET /health":  true,
	"GET /metrics": true,
}

type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client. An empty DSN, or a client that
// fails to start, leaves tracing off and returns a no-op flush.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler:    sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		log.Warn().Err(err).Msg("sentry: failed to initialize, continuing without tracing")
		return func() {}, nil
	}

	log.Info().
		Str("environment", cfg.Environment).
		Float64("sample_rate", cfg.TracesSampleRate).
		Msg("sentry: tracing initialized")
	return func() { sentry.Flush(5 * time.Second) }, nil
}

func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if unsampledTransactions[ctx.Span.Name] {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes become tags on the span. Zero values are skipped.
type SpanAttributes struct {
	UserID        int64
	LibraryItemID int64
	ContentType   string
	Operation     string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.UserID != 0 {
		span.SetTag("user_id", strconv.FormatInt(a.UserID, 10))
	}
	if a.LibraryItemID != 0 {
		span.SetTag("library_item_id", strconv.FormatInt(a.LibraryItemID, 10))
	}
	if a.ContentType != "" {
		span.SetTag("content_type", a.ContentType)
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is safe to use when Sentry is not initialized.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err on the request's hub.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan opens a child of the span already in ctx, or a new transaction
// when there is none, as with the background reindex worker.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// Breadcrumb records a pipeline step on the request's scope, so an error
// captured later shows how far ingestion got.
func Breadcrumb(ctx context.Context, category, message string, data map[string]any) {
	crumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}
