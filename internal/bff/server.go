package bff

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"draftbff/internal/authz"
	"draftbff/internal/draftorders"
	"draftbff/pkg/middleware"
	"draftbff/pkg/openapi"
	"draftbff/pkg/problems"
)

const serviceName = "draftbff"

// Version is stamped at build time.
var Version = "dev"

// Handler builds the router. CORS runs before auth so preflights never need
// a token.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(a.log))
	r.Use(middleware.AccessLog(a.log))
	r.Use(middleware.Tracing())
	r.Use(middleware.CORS(a.cfg.CORSAllowedOrigins))

	health := func(w http.ResponseWriter, _ *http.Request) {
		problems.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
	r.Get("/", health)
	r.Get("/healthz", health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/openapi.json", openapi.DraftOrders().ServeHandler(serviceName, Version))

	r.Group(func(pr chi.Router) {
		pr.Use(authz.Middleware(a.authorizer))
		draftorders.NewHandler(a.dispatcher, a.log).Routes(pr)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		problems.Write(w, http.StatusNotFound, problems.CodeNotFound, "route not found")
	})
	return r
}
