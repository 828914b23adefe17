package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tradepost-hq/tradepost/internal/ledger"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
	"github.com/tradepost-hq/tradepost/internal/reports"
	"github.com/tradepost-hq/tradepost/internal/shipments"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterdataHandler *masterdata.Handler
	LedgerHandler     *ledger.Handler
	ShipmentsHandler  *shipments.Handler
	ReportsHandler    *reports.Handler
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/masterdata", params.MasterdataHandler.Routes())
		r.Mount("/ledger", params.LedgerHandler.Routes())
		r.Mount("/logistics", params.ShipmentsHandler.Routes())
		r.Mount("/reports", params.ReportsHandler.Routes())
	})

	return r
}
