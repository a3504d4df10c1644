package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware instruments every request with count, duration, and error
// metrics, labeled by the matched chi route pattern.
func (e *PrometheusExporter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, req)

		route := chi.RouteContext(req.Context()).RoutePattern()
		if route == "" {
			route = req.URL.Path
		}

		e.RecordRequest(route)
		e.RecordDuration(route, time.Since(start).Seconds())
		if recorder.status >= http.StatusInternalServerError {
			e.RecordError(route)
		}
	})
}
