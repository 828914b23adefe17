package masterdata

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradepost-hq/tradepost/internal/platform/httpx"
)

// Handler exposes reference-entity management over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the masterdata endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/shops", h.createShop)
	r.Get("/shops", h.listShops)
	r.Post("/shops/{id}/deactivate", h.deactivateShop)
	r.Post("/shops/{id}/activate", h.activateShop)
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
	r.Post("/customers", h.createCustomer)
	r.Get("/customers", h.listCustomers)
	r.Post("/users", h.createUser)
	r.Get("/users", h.listUsers)
	r.Post("/clearing-agents", h.createClearingAgent)
	r.Get("/clearing-agents", h.listClearingAgents)
	r.Post("/freight-forwarders", h.createFreightForwarder)
	r.Get("/freight-forwarders", h.listFreightForwarders)
	r.Post("/custom-expense-types", h.createCustomExpenseType)
	r.Get("/custom-expense-types", h.listCustomExpenseTypes)
	r.Post("/expense-accounts", h.createExpenseAccount)
	r.Get("/expense-accounts", h.listExpenseAccounts)
	r.Post("/currencies", h.createCurrency)
	r.Get("/currencies", h.listCurrencies)
	r.Put("/currencies/{id}/rate", h.updateCurrencyRate)
	return r
}

type shopRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

func (h *Handler) createShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateShop(r.Context(), req.Name, req.Location)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listShops(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") == "true" {
		httpx.JSON(w, http.StatusOK, h.service.ActiveShops())
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Shops())
}

func (h *Handler) deactivateShop(w http.ResponseWriter, r *http.Request) {
	h.setShopActive(w, r, false)
}

func (h *Handler) activateShop(w http.ResponseWriter, r *http.Request) {
	h.setShopActive(w, r, true)
}

func (h *Handler) setShopActive(w http.ResponseWriter, r *http.Request, active bool) {
	if err := h.service.SetShopActive(r.Context(), chi.URLParam(r, "id"), active); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category"`
	HOCost       float64 `json:"hoCost" validate:"gte=0"`
	MinSalePrice float64 `json:"minSalePrice" validate:"gte=0"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateProduct(r.Context(), Product{
		Name:         req.Name,
		Category:     req.Category,
		HOCost:       req.HOCost,
		MinSalePrice: req.MinSalePrice,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Products())
}

type customerRequest struct {
	Name      string `json:"name" validate:"required"`
	ShopID    string `json:"shopId" validate:"required"`
	Phone     string `json:"phone"`
	Reference string `json:"reference"`
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateCustomer(r.Context(), Customer{
		Name:      req.Name,
		ShopID:    req.ShopID,
		Phone:     req.Phone,
		Reference: req.Reference,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Customers(r.URL.Query().Get("shopId")))
}

type userRequest struct {
	Name   string `json:"name" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=HEAD_OFFICE SHOP_OPERATOR"`
	ShopID string `json:"shopId"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateUser(r.Context(), User{
		Name:   req.Name,
		Role:   UserRole(req.Role),
		ShopID: req.ShopID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Users())
}

type counterpartyRequest struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact"`
}

func (h *Handler) createClearingAgent(w http.ResponseWriter, r *http.Request) {
	var req counterpartyRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateClearingAgent(r.Context(), req.Name, req.Contact)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listClearingAgents(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ClearingAgents())
}

func (h *Handler) createFreightForwarder(w http.ResponseWriter, r *http.Request) {
	var req counterpartyRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateFreightForwarder(r.Context(), req.Name, req.Contact)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listFreightForwarders(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.FreightForwarders())
}

type describedRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) createCustomExpenseType(w http.ResponseWriter, r *http.Request) {
	var req describedRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateCustomExpenseType(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listCustomExpenseTypes(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.CustomExpenseTypes())
}

func (h *Handler) createExpenseAccount(w http.ResponseWriter, r *http.Request) {
	var req describedRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateExpenseAccount(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listExpenseAccounts(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.ExpenseAccounts())
}

type currencyRequest struct {
	Code string  `json:"code" validate:"required"`
	Name string  `json:"name"`
	Rate float64 `json:"rate" validate:"gt=0"`
}

func (h *Handler) createCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.service.CreateCurrency(r.Context(), Currency{
		Code: req.Code,
		Name: req.Name,
		Rate: req.Rate,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) listCurrencies(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Currencies())
}

type rateRequest struct {
	Rate float64 `json:"rate" validate:"gt=0"`
}

func (h *Handler) updateCurrencyRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateCurrencyRate(r.Context(), chi.URLParam(r, "id"), req.Rate); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrShopNotFound), errors.Is(err, ErrCurrencyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrShopRequired),
		errors.Is(err, ErrInvalidRate):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("masterdata operation failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
