package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

// SentryMiddleware opens one transaction per request on a cloned hub. The
// transaction is renamed to the chi route pattern once routing is done, so
// /library/17 and /library/18 group together. Panics are reported and
// re-raised.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		options := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceURL),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			options = append(options, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}

		transaction := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, options...)
		defer transaction.Finish()

		ctx := sentry.SetHubOnContext(transaction.Context(), hub)
		ctx, holder := ensureUserHolder(ctx)
		r = r.WithContext(ctx)

		hub.Scope().SetRequest(r)
		if requestID := GetRequestID(ctx); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
			transaction.SetTag("request_id", requestID)
		}

		defer func() {
			if err := recover(); err != nil {
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(ctx, err)
				panic(err)
			}
		}()

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.statusCode()

		if pattern := routePattern(r); pattern != "" {
			transaction.Name = r.Method + " " + pattern
			transaction.Source = sentry.SourceRoute
		}
		if id := chi.URLParam(r, "id"); id != "" {
			transaction.SetTag("library_item_id", id)
		}

		transaction.Status = httpStatusToSpanStatus(status)
		transaction.SetData("http.response.status_code", status)

		if holder.userID != 0 {
			userID := strconv.FormatInt(holder.userID, 10)
			hub.Scope().SetUser(sentry.User{ID: userID})
			transaction.SetTag("user_id", userID)
		}

		// Errors with a cause are captured where they happen; this catches
		// 5xx responses written without one.
		if status >= 500 {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d %s", status, transaction.Name))
		}
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

var spanStatusByCode = map[int]sentry.SpanStatus{
	http.StatusBadRequest:            sentry.SpanStatusInvalidArgument,
	http.StatusUnauthorized:          sentry.SpanStatusUnauthenticated,
	http.StatusForbidden:             sentry.SpanStatusPermissionDenied,
	http.StatusNotFound:              sentry.SpanStatusNotFound,
	http.StatusConflict:              sentry.SpanStatusAlreadyExists,
	http.StatusRequestEntityTooLarge: sentry.SpanStatusInvalidArgument,
	http.StatusUnprocessableEntity:   sentry.SpanStatusInvalidArgument,
	http.StatusTooManyRequests:       sentry.SpanStatusResourceExhausted,
	499:                              sentry.SpanStatusCanceled,
	http.StatusNotImplemented:        sentry.SpanStatusUnimplemented,
	http.StatusBadGateway:            sentry.SpanStatusUnavailable,
	http.StatusServiceUnavailable:    sentry.SpanStatusUnavailable,
	http.StatusGatewayTimeout:        sentry.SpanStatusDeadlineExceeded,
}

func httpStatusToSpanStatus(status int) sentry.SpanStatus {
	if s, ok := spanStatusByCode[status]; ok {
		return s
	}
	switch {
	case status >= 200 && status < 400:
		return sentry.SpanStatusOK
	case status >= 400 && status < 500:
		return sentry.SpanStatusInvalidArgument
	case status >= 500:
		return sentry.SpanStatusInternalError
	default:
		return sentry.SpanStatusUnknown
	}
}
