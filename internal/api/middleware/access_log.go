package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AccessLog puts a request-scoped logger carrying the request id into the
// context and writes one entry per request once the handler returns.
// APIKeyAuth runs later in the chain, so the user id travels back through a
// holder stored in the context here.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := log.With().Str("request_id", GetRequestID(r.Context())).Logger()
		ctx, holder := ensureUserHolder(logger.WithContext(r.Context()))

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.statusCode()
		entry := logger.WithLevel(levelForStatus(status)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", rec.bytes).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("remote_addr", clientIP(r))
		if ua := r.UserAgent(); ua != "" {
			entry = entry.Str("user_agent", ua)
		}
		if holder.userID != 0 {
			entry = entry.Int64("user_id", holder.userID)
		}
		entry.Msg("http request")
	})
}

func levelForStatus(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// clientIP prefers the first parseable address in X-Forwarded-For, then
// X-Real-IP, then the connection's remote address. Malformed header values
// are skipped so they never end up as rate-limit keys.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
