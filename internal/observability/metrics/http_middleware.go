package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPMetricsMiddleware instruments requests with Prometheus metrics
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		ObserveHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(ww.status), time.Since(start))
	})
}

// idCollections are API collections whose members are addressed by id.
var idCollections = map[string]bool{
	"products":  true,
	"sales":     true,
	"checkouts": true,
	"staff":     true,
}

// routeLabel collapses record ids so /api/products/{id} is one metric
// series instead of one per product. Named sub-resources like
// /api/products/low-stock are left alone.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts)-1; i++ {
		if idCollections[parts[i]] && parts[i+1] != "low-stock" {
			parts[i+1] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
