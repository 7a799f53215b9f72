// Package middleware holds the HTTP middleware of the parser service.
package middleware

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/article-parser/pkg/metrics"
)

// Metrics instruments requests with promhttp, labelled by route rather than
// raw path. A nil m disables recording.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return promhttp.InstrumentHandlerInFlight(m.HTTPRequestsInFlight,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				route := prometheus.Labels{"path": normalizePath(r.URL.Path)}
				promhttp.InstrumentHandlerDuration(
					m.HTTPRequestDuration.MustCurryWith(route),
					promhttp.InstrumentHandlerCounter(m.HTTPRequestsTotal.MustCurryWith(route), next),
				).ServeHTTP(w, r)
			}))
	}
}

// normalizePath maps a request path to its route so label cardinality stays
// bounded.
func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "v1" {
		return path
	}
	switch {
	case parts[2] == "words" && len(parts) == 4:
		return "/api/v1/words/{word}"
	case parts[2] == "documents" && len(parts) == 5 && parts[4] == "parse":
		return "/api/v1/documents/{id}/parse"
	}
	return path
}
