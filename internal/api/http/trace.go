package http

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const headerTraceID = "X-Trace-Id"

// Trace opens a server span per request and echoes its trace id so clients
// can quote it in bug reports.
func Trace(service string) func(http.Handler) http.Handler {
	spans := otelhttp.NewMiddleware(service,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return func(next http.Handler) http.Handler {
		return spans(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
				w.Header().Set(headerTraceID, sc.TraceID().String())
			}
			next.ServeHTTP(w, r)
		}))
	}
}
