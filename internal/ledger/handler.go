package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradepost-hq/tradepost/internal/platform/httpx"
	"github.com/tradepost-hq/tradepost/internal/shared"
)

// BalancePort derives a customer's outstanding balance for the payment
// ceiling check. The check lives here, not in the ledger operation itself.
type BalancePort interface {
	CustomerBalance(customerID string) float64
}

// Handler exposes the ledger operations over HTTP.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	balances    BalancePort
	idempotency *shared.IdempotencyStore
	validate    *validator.Validate
}

// NewHandler builds Handler. The idempotency store may be nil; actions
// without an Idempotency-Key header are never deduplicated.
func NewHandler(logger *slog.Logger, service *Service, balances BalancePort, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		balances:    balances,
		idempotency: idempotency,
		validate:    validator.New(),
	}
}

// Routes mounts the ledger endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sales", h.recordSale)
	r.Post("/payments", h.recordPayment)
	r.Post("/expenses", h.recordExpense)
	r.Get("/transactions", h.listTransactions)
	return r
}

type saleItemRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gt=0"`
}

type saleRequest struct {
	ShopID     string            `json:"shopId" validate:"required"`
	CustomerID string            `json:"customerId" validate:"required"`
	Items      []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	CashPaid   float64           `json:"cashPaid" validate:"gte=0"`
	Date       time.Time         `json:"date" validate:"required"`
}

type saleResponse struct {
	InvoiceID string   `json:"invoiceId"`
	Type      string   `json:"type"`
	Total     float64  `json:"total"`
	Warnings  []string `json:"warnings,omitempty"`
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	release, ok := h.claim(w, r, "ledger:sale")
	if !ok {
		return
	}

	items := make([]SaleItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = SaleItem{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	result, err := h.service.RecordSale(r.Context(), SaleInput{
		ShopID:     req.ShopID,
		CustomerID: req.CustomerID,
		Items:      items,
		CashPaid:   req.CashPaid,
		Date:       req.Date,
	})
	if err != nil {
		release()
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saleResponse{
		InvoiceID: result.InvoiceID,
		Type:      string(result.Type),
		Total:     result.Total,
		Warnings:  result.Warnings,
	})
}

type paymentRequest struct {
	ShopID     string    `json:"shopId" validate:"required"`
	CustomerID string    `json:"customerId" validate:"required"`
	Amount     float64   `json:"amount" validate:"gt=0"`
	Date       time.Time `json:"date" validate:"required"`
	Notes      string    `json:"notes"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if balance := h.balances.CustomerBalance(req.CustomerID); req.Amount > balance {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			fmt.Sprintf("payment amount (%.2f) cannot be greater than the outstanding balance (%.2f)", req.Amount, balance))
		return
	}
	release, ok := h.claim(w, r, "ledger:payment")
	if !ok {
		return
	}

	id, err := h.service.RecordPayment(r.Context(), PaymentInput{
		ShopID:     req.ShopID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Date:       req.Date,
		Notes:      req.Notes,
	})
	if err != nil {
		release()
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

type expenseRequest struct {
	ShopID           string    `json:"shopId" validate:"required"`
	ExpenseAccountID string    `json:"expenseAccountId"`
	Description      string    `json:"description" validate:"required"`
	Amount           float64   `json:"amount" validate:"gt=0"`
	Date             time.Time `json:"date" validate:"required"`
}

func (h *Handler) recordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	release, ok := h.claim(w, r, "ledger:expense")
	if !ok {
		return
	}

	id, err := h.service.RecordExpense(r.Context(), ExpenseInput{
		ShopID:           req.ShopID,
		ExpenseAccountID: req.ExpenseAccountID,
		Description:      req.Description,
		Amount:           req.Amount,
		Date:             req.Date,
	})
	if err != nil {
		release()
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

type transactionResponse struct {
	ID               string    `json:"id"`
	ShopID           string    `json:"shopId"`
	InvoiceID        string    `json:"invoiceId,omitempty"`
	ProductID        string    `json:"productId,omitempty"`
	Type             string    `json:"type"`
	Description      string    `json:"description"`
	Amount           float64   `json:"amount"`
	Quantity         float64   `json:"quantity,omitempty"`
	CustomerID       string    `json:"customerId,omitempty"`
	ExpenseAccountID string    `json:"expenseAccountId,omitempty"`
	Date             time.Time `json:"date"`
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	var out []transactionResponse
	for _, t := range h.service.Transactions() {
		if shopID != "" && t.ShopID != shopID {
			continue
		}
		out = append(out, transactionResponse{
			ID:               t.ID,
			ShopID:           t.ShopID,
			InvoiceID:        t.InvoiceID,
			ProductID:        t.ProductID,
			Type:             string(t.Type),
			Description:      t.Description,
			Amount:           t.Amount,
			Quantity:         t.Quantity,
			CustomerID:       t.CustomerID,
			ExpenseAccountID: t.ExpenseAccountID,
			Date:             t.Date,
		})
	}
	if out == nil {
		out = []transactionResponse{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

// claim takes the request's idempotency key, if any. The returned release
// func rolls the claim back when the operation fails downstream.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request, module string) (func(), bool) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idempotency == nil {
		return func() {}, true
	}
	if err := h.idempotency.CheckAndInsert(r.Context(), key, module); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "action already processed")
			return nil, false
		}
		h.logger.Error("idempotency claim failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return nil, false
	}
	ctx := r.Context()
	return func() {
		if err := h.idempotency.Delete(ctx, key, module); err != nil {
			h.logger.Warn("idempotency release failed", slog.Any("error", err))
		}
	}, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", stockErr.Error())
	case errors.Is(err, ErrShopRequired),
		errors.Is(err, ErrCustomerRequired),
		errors.Is(err, ErrDateRequired),
		errors.Is(err, ErrNoItems),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrCashNegative),
		errors.Is(err, ErrCashExceedsTotal),
		errors.Is(err, ErrAccountRequired),
		errors.Is(err, ErrUnknownProduct):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger operation failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
