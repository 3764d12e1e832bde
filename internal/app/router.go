package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mpi-retail/mpi/internal/catalog"
	"github.com/mpi-retail/mpi/internal/customers"
	"github.com/mpi-retail/mpi/internal/masterdata"
	"github.com/mpi-retail/mpi/internal/observability"
	"github.com/mpi-retail/mpi/internal/platform/httpx"
	"github.com/mpi-retail/mpi/internal/pricing"
	"github.com/mpi-retail/mpi/internal/reports"
	"github.com/mpi-retail/mpi/internal/sales"
	"github.com/mpi-retail/mpi/internal/shifts"
	"github.com/mpi-retail/mpi/jobs"
)

// RouterParams collects every handler the HTTP process mounts.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	Catalog    *catalog.Handler
	Pricing    *pricing.Handler
	Customers  *customers.Handler
	MasterData *masterdata.Handler
	Sales      *sales.Handler
	Reports    *reports.Handler
	Shifts     *shifts.Handler
	Jobs       *jobs.Handler

	Healthcheck http.HandlerFunc
}

// NewRouter assembles the chi router with the shared middleware stack.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config, Metrics: p.Metrics}) {
		r.Use(mw)
	}

	if p.Healthcheck != nil {
		r.Get("/healthz", p.Healthcheck)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if p.MasterData != nil {
			p.MasterData.MountRoutes(r)
		}
		if p.Catalog != nil {
			r.Route("/catalog", p.Catalog.MountRoutes)
		}
		if p.Pricing != nil {
			r.Route("/pricing", p.Pricing.MountRoutes)
		}
		if p.Customers != nil {
			r.Route("/customers", p.Customers.MountRoutes)
		}
		if p.Sales != nil {
			r.Route("/sales", p.Sales.MountRoutes)
		}
		if p.Reports != nil {
			r.Route("/reports", p.Reports.MountRoutes)
		}
		if p.Shifts != nil {
			r.Route("/shifts", p.Shifts.MountRoutes)
		}
		if p.Jobs != nil {
			r.Route("/jobs", p.Jobs.MountRoutes)
		}
	})

	return r
}
