package shipments

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tradepost-hq/tradepost/internal/platform/httpx"
	"github.com/tradepost-hq/tradepost/internal/shared"
)

// Handler exposes the export/receive pipeline over HTTP.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validate    *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
		validate:    validator.New(),
	}
}

// Routes mounts the shipment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/exports", h.createExport)
	r.Get("/shipments", h.listShipments)
	r.Post("/shipments/{id}/receive", h.receive)
	return r
}

type exportItemRequest struct {
	ProductID  string  `json:"productId" validate:"required"`
	Quantity   float64 `json:"quantity" validate:"gt=0"`
	LandedCost float64 `json:"landedCost" validate:"gt=0"`
}

type overheadRequest struct {
	CounterpartyID string  `json:"counterpartyId"`
	Amount         float64 `json:"amount" validate:"gte=0"`
}

type exportRequest struct {
	ShopID           string              `json:"shopId" validate:"required"`
	Items            []exportItemRequest `json:"items" validate:"required,min=1,dive"`
	FreightForwarder overheadRequest     `json:"freightForwarder"`
	ClearingAgent    overheadRequest     `json:"clearingAgent"`
	CustomExpense    overheadRequest     `json:"customExpense"`
	ExpectedDuty     float64             `json:"expectedDuty" validate:"gte=0"`
}

func (h *Handler) createExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	release, ok := h.claim(w, r, "shipments:export")
	if !ok {
		return
	}

	items := make([]ExportItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = ExportItem{ProductID: item.ProductID, Quantity: item.Quantity, LandedCost: item.LandedCost}
	}
	id, err := h.service.CreateExport(r.Context(), ExportInput{
		ShopID:           req.ShopID,
		Items:            items,
		FreightForwarder: Overhead{CounterpartyID: req.FreightForwarder.CounterpartyID, Amount: req.FreightForwarder.Amount},
		ClearingAgent:    Overhead{CounterpartyID: req.ClearingAgent.CounterpartyID, Amount: req.ClearingAgent.Amount},
		CustomExpense:    Overhead{CounterpartyID: req.CustomExpense.CounterpartyID, Amount: req.CustomExpense.Amount},
		ExpectedDuty:     req.ExpectedDuty,
	})
	if err != nil {
		release()
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

type receivedItemRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"gte=0"`
}

type receiveRequest struct {
	Items []receivedItemRequest `json:"items" validate:"required,dive"`
}

type receiveResponse struct {
	OverheadPerUnit float64  `json:"overheadPerUnit"`
	ImportRows      int      `json:"importRows"`
	Warnings        []string `json:"warnings,omitempty"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	shipmentID := chi.URLParam(r, "id")
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	release, ok := h.claim(w, r, "shipments:receive")
	if !ok {
		return
	}

	items := make([]ReceivedItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = ReceivedItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	result, err := h.service.Receive(r.Context(), shipmentID, items)
	if err != nil {
		release()
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receiveResponse{
		OverheadPerUnit: result.OverheadPerUnit,
		ImportRows:      result.ImportRows,
		Warnings:        result.Warnings,
	})
}

type shipmentItemResponse struct {
	ProductID        string   `json:"productId"`
	ExpectedQuantity float64  `json:"expectedQuantity"`
	ReceivedQuantity *float64 `json:"receivedQuantity,omitempty"`
	LandedCost       float64  `json:"landedCost"`
}

type shipmentResponse struct {
	ID                string                 `json:"id"`
	ShopID            string                 `json:"shopId"`
	Date              time.Time              `json:"date"`
	Status            string                 `json:"status"`
	Items             []shipmentItemResponse `json:"items"`
	FreightCost       float64                `json:"freightCost"`
	ClearingCost      float64                `json:"clearingCost"`
	CustomExpenseCost float64                `json:"customExpenseCost"`
	ExpectedDuty      float64                `json:"expectedDuty"`
}

func (h *Handler) listShipments(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	var shipments []Shipment
	if shopID != "" {
		shipments = h.service.ShipmentsForShop(shopID)
	} else {
		shipments = h.service.Shipments()
	}

	out := make([]shipmentResponse, 0, len(shipments))
	for _, s := range shipments {
		resp := shipmentResponse{
			ID:                s.ID,
			ShopID:            s.ShopID,
			Date:              s.Date,
			Status:            string(s.Status),
			FreightCost:       s.FreightCost,
			ClearingCost:      s.ClearingCost,
			CustomExpenseCost: s.CustomExpenseCost,
			ExpectedDuty:      s.ExpectedDuty,
		}
		for _, item := range s.Items {
			resp.Items = append(resp.Items, shipmentItemResponse{
				ProductID:        item.ProductID,
				ExpectedQuantity: item.ExpectedQuantity,
				ReceivedQuantity: item.ReceivedQuantity,
				LandedCost:       item.LandedCost,
			})
		}
		out = append(out, resp)
	}
	httpx.JSON(w, http.StatusOK, out)
}

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
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyReceived):
		httpx.Problem(w, http.StatusConflict, "Already Received", err.Error())
	case errors.Is(err, ErrShopRequired),
		errors.Is(err, ErrShopNotFound),
		errors.Is(err, ErrNoItems),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidLandedCost),
		errors.Is(err, ErrUnknownProduct):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("shipment operation failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
