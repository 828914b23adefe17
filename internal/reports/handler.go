package reports

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradepost-hq/tradepost/internal/masterdata"
	"github.com/tradepost-hq/tradepost/internal/platform/httpx"
)

// Handler exposes the derived reports over HTTP. Every endpoint is a read-only
// fold over the current snapshot.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes mounts the report endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stock", h.stock)
	r.Get("/stock/export", h.stockExport)
	r.Get("/income-statement", h.incomeStatement)
	r.Get("/income-statement/export", h.incomeStatementExport)
	r.Get("/customers/{id}/ledger", h.customerLedger)
	r.Get("/performance", h.performance)
	r.Get("/products/{id}/comparison", h.productComparison)
	r.Get("/dashboard", h.dashboard)
	return r
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	if shopID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "shopId query parameter is required")
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.StockReport(shopID))
}

func (h *Handler) stockExport(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	if shopID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "shopId query parameter is required")
		return
	}
	f, err := h.service.InventoryWorkbook(shopID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	name := fmt.Sprintf("inventory-%s-%s.xlsx", shopID, time.Now().Format("2006-01-02"))
	if err := httpx.Workbook(w, f, name); err != nil {
		h.logger.Error("streaming workbook failed", slog.Any("error", err))
	}
}

func (h *Handler) incomeStatement(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	if shopID == "" {
		shopID = masterdata.HeadOfficeShopID
	}
	httpx.JSON(w, http.StatusOK, h.service.IncomeStatement(shopID))
}

func (h *Handler) incomeStatementExport(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	if shopID == "" {
		shopID = masterdata.HeadOfficeShopID
	}
	f, err := h.service.IncomeStatementWorkbook(shopID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	name := fmt.Sprintf("income-statement-%s-%s.xlsx", shopID, time.Now().Format("2006-01-02"))
	if err := httpx.Workbook(w, f, name); err != nil {
		h.logger.Error("streaming workbook failed", slog.Any("error", err))
	}
}

func (h *Handler) customerLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.service.CustomerLedger(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) performance(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ShopPerformance())
}

func (h *Handler) productComparison(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ProductComparison(chi.URLParam(r, "id")))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if shopID := r.URL.Query().Get("shopId"); shopID != "" {
		httpx.JSON(w, http.StatusOK, h.service.ShopSummary(shopID))
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.NetworkSummary())
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound), errors.Is(err, ErrShopNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("report derivation failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
