package api

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/solarquote/internal/api/swagger"
	"github.com/bher20/solarquote/internal/auth"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/notification"
	"github.com/bher20/solarquote/internal/states"
	"github.com/bher20/solarquote/internal/storage"
)

// Deps are the services behind the HTTP API. Auth and Notify are optional;
// without Auth the admin routes are not mounted.
type Deps struct {
	Store     storage.Storage
	Estimates *estimates.Service
	States    *states.Service
	Auth      *auth.Service
	Notify    *notification.Service
	Limiter   *RateLimiter
}

// NewMux constructs the HTTP mux with the public calculator, portfolio and
// state routes, the admin API, metrics and health endpoints.
func NewMux(d Deps) *http.ServeMux {
	if d.States == nil {
		d.States = states.NewService(d.Store)
	}
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("live"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			log.Printf("readyz: db ping failed: %v", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/docs/", http.StripPrefix("/docs", swagger.Handler("/docs")))

	h := &handlers{d: d}

	mux.Handle("POST /api/v1/calculators/{kind}",
		instrument("calculate", RateLimit(d.Limiter, http.HandlerFunc(h.calculate))))
	mux.Handle("GET /api/v1/portfolio", instrument("portfolio", http.HandlerFunc(h.portfolio)))
	mux.Handle("GET /api/v1/states", instrument("states", http.HandlerFunc(h.listStates)))
	mux.Handle("GET /api/v1/states/{code}", instrument("state", http.HandlerFunc(h.getState)))

	if d.Auth != nil {
		mux.Handle("POST /api/v1/auth/login",
			instrument("login", RateLimit(d.Limiter, http.HandlerFunc(h.login))))
		registerAdminRoutes(mux, h, d.Auth)
	}

	return mux
}

func registerAdminRoutes(mux *http.ServeMux, h *handlers, a *auth.Service) {
	protect := func(route, obj, act string, fn http.HandlerFunc) http.Handler {
		return instrument(route, a.Middleware(a.RequirePermission(obj, act, fn)))
	}

	mux.Handle("GET /api/v1/admin/estimates",
		protect("admin_estimates", auth.ObjEstimates, auth.ActRead, h.listEstimates))
	mux.Handle("GET /api/v1/admin/estimates/{id}",
		protect("admin_estimate", auth.ObjEstimates, auth.ActRead, h.getEstimate))
	mux.Handle("GET /api/v1/admin/summary",
		protect("admin_summary", auth.ObjSummary, auth.ActRead, h.summary))
	mux.Handle("GET /api/v1/admin/state-rates",
		protect("admin_state_rates", auth.ObjStates, auth.ActRead, h.listStateRates))
	mux.Handle("PUT /api/v1/admin/states/{code}/rate-sheet",
		protect("admin_rate_sheet", auth.ObjStates, auth.ActWrite, h.importRateSheet))

	if h.d.Notify != nil {
		mux.Handle("GET /api/v1/admin/settings/email",
			protect("admin_email", auth.ObjSettings, auth.ActRead, h.getEmailConfig))
		mux.Handle("PUT /api/v1/admin/settings/email",
			protect("admin_email", auth.ObjSettings, auth.ActWrite, h.putEmailConfig))
		mux.Handle("POST /api/v1/admin/settings/email/test",
			protect("admin_email_test", auth.ObjSettings, auth.ActWrite, h.testEmailConfig))
	}
	mux.Handle("GET /api/v1/admin/settings/digest",
		protect("admin_digest", auth.ObjSettings, auth.ActRead, h.getDigestSettings))
	mux.Handle("PUT /api/v1/admin/settings/digest",
		protect("admin_digest", auth.ObjSettings, auth.ActWrite, h.putDigestSettings))
}

type handlers struct {
	d Deps
}
