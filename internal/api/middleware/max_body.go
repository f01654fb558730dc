package middleware

import (
	"net/http"

	"github.com/skimzy/skimzy/internal/api"
	"github.com/skimzy/skimzy/internal/logging"
)

// BodyLimits caps request bodies. Routes lists exact paths that need a
// different cap than Default, such as the PDF upload.
type BodyLimits struct {
	Default int64
	Routes  map[string]int64
}

func (l BodyLimits) limitFor(path string) int64 {
	if limit, ok := l.Routes[path]; ok {
		return limit
	}
	return l.Default
}

// MaxBodyBytes rejects declared oversize bodies up front and wraps the rest
// in http.MaxBytesReader, so handlers see a *http.MaxBytesError on overrun.
func MaxBodyBytes(limits BodyLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := limits.limitFor(r.URL.Path)
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				logging.Ctx(r.Context()).Warn().
					Str("path", r.URL.Path).
					Int64("content_length", r.ContentLength).
					Int64("limit", limit).
					Msg("request body rejected")
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
