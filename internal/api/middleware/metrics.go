package middleware

import (
	"net/http"
	"strconv"

	"github.com/skimzy/skimzy/internal/metrics"
)

// Metrics counts requests by route pattern and status.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		path := routePattern(r)
		if path == "" {
			path = r.URL.Path
		}
		metrics.RecordHTTPRequest(path, strconv.Itoa(rec.statusCode()))
	})
}
