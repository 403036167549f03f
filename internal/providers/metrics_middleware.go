package providers

import (
	"net/http"
	"time"
	"voiceloop/internal/structures"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	unknownRoute    = "unknown"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MetricsMiddleware instruments the read-only API. Requests are labelled by
// their registered route so stray paths collapse into "unknown", and every
// response carries a request id that also appears in the access log.
func MetricsMiddleware(metrics MetricsProviderInterface, logger Logger, routes []structures.Route, next http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		known[route.Url] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if _, ok := known[route]; !ok {
			route = unknownRoute
		}
		duration := time.Since(start)
		metrics.IncRequestsTotal(route, sw.status)
		metrics.ObserveRequestDuration(route, duration)
		logger.Debugf(TypeApi, "[%s] %s %s -> %d (%s)", requestID, r.Method, r.URL.RequestURI(), sw.status, duration)
	})
}
