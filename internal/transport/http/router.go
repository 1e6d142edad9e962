package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"safesupport/pkg/platform/httputil"
	"safesupport/pkg/platform/middleware/metadata"
	request "safesupport/pkg/platform/middleware/request"
	"safesupport/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Options configures the router.
type Options struct {
	Logger      *slog.Logger
	Latency     request.DurationObserver
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	// Checks are run by /healthz, keyed by component name.
	Checks map[string]HealthCheck
}

// NewRouter mounts the shared middleware stack, the operational endpoints
// and every domain handler.
func NewRouter(opts Options, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(opts.Logger))
	r.Use(request.Logger(opts.Logger))
	r.Use(cors.Handler(corsOptions(opts.CORSOrigins)))
	r.Use(request.LatencyMiddleware(opts.Latency))

	r.Get("/", handleIndex)
	r.Get("/healthz", handleHealth(opts.Checks))
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", request.HeaderRequestID},
		ExposedHeaders: []string{request.HeaderRequestID, "Retry-After", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		res := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			res.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				res.Checks[name] = err.Error()
				res.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, res)
	}
}

const indexPage = `<html>
  <head><title>SafeSupport</title></head>
  <body style="font-family:system-ui,Arial,sans-serif;margin:40px;">
    <h1>SafeSupport</h1>
    <p>This server receives <code>/api/panic-alert</code> and <code>/api/panic-audit</code> POST requests.</p>
    <p><a href="/alerts">View recent events (/alerts)</a></p>
    <p>Authentication required for all API endpoints.</p>
    <p>To test email configuration: POST to <code>/api/test-email</code> with {"email": "your@email.com"}</p>
  </body>
</html>
`

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexPage))
}
