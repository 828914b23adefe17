package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/ledger"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
)

var (
	// ErrShopRequired indicates a missing destination shop.
	ErrShopRequired = errors.New("shipments: destination shop required")
	// ErrShopNotFound indicates an unknown destination shop.
	ErrShopNotFound = errors.New("shipments: shop not found")
	// ErrNoItems indicates an export without items.
	ErrNoItems = errors.New("shipments: at least one item required")
	// ErrInvalidQuantity indicates a non-positive item quantity.
	ErrInvalidQuantity = errors.New("shipments: quantity must be positive")
	// ErrInvalidLandedCost indicates a non-positive per-unit landed cost.
	ErrInvalidLandedCost = errors.New("shipments: landed cost must be positive")
	// ErrUnknownProduct indicates an item for a product not in the catalog.
	ErrUnknownProduct = errors.New("shipments: unknown product")
	// ErrNotFound indicates the shipment does not exist.
	ErrNotFound = errors.New("shipments: shipment not found")
	// ErrAlreadyReceived rejects a second receipt; the PENDING to RECEIVED
	// transition happens at most once.
	ErrAlreadyReceived = errors.New("shipments: shipment already received")
)

// StorePort is the write side of the document store.
type StorePort interface {
	ApplyBatch(ctx context.Context, writes []docstore.Write) error
}

// SnapshotPort serves the current shipments snapshot.
type SnapshotPort interface {
	Snapshot(collection string) []docstore.Document
}

// MasterdataPort resolves reference entities for validation and expense
// descriptions.
type MasterdataPort interface {
	ShopByID(id string) (masterdata.Shop, bool)
	ProductByID(id string) (masterdata.Product, bool)
	FreightForwarderByID(id string) (masterdata.FreightForwarder, bool)
	ClearingAgentByID(id string) (masterdata.ClearingAgent, bool)
	CustomExpenseTypeByID(id string) (masterdata.CustomExpenseType, bool)
}

// Service owns the export/receive pipeline.
type Service struct {
	store  StorePort
	snaps  SnapshotPort
	master MasterdataPort
	now    func() time.Time
}

// NewService builds Service.
func NewService(store StorePort, snaps SnapshotPort, master MasterdataPort) *Service {
	return &Service{store: store, snaps: snaps, master: master, now: time.Now}
}

// ExportItem is one requested line on an export.
type ExportItem struct {
	ProductID  string
	Quantity   float64
	LandedCost float64
}

// Overhead pairs an overhead amount with its counterparty. A category is
// booked only when the amount is positive and a counterparty was chosen.
type Overhead struct {
	CounterpartyID string
	Amount         float64
}

// ExportInput describes a head-office export.
type ExportInput struct {
	ShopID           string
	Items            []ExportItem
	FreightForwarder Overhead
	ClearingAgent    Overhead
	CustomExpense    Overhead
	ExpectedDuty     float64
}

// CreateExport creates a PENDING shipment and books each applicable
// overhead as a head-office expense, all in one atomic batch. Overheads are
// head-office costs at export time regardless of when (or whether) the shop
// receives the goods.
func (s *Service) CreateExport(ctx context.Context, input ExportInput) (string, error) {
	if input.ShopID == "" {
		return "", ErrShopRequired
	}
	if _, ok := s.master.ShopByID(input.ShopID); !ok {
		return "", fmt.Errorf("%w: %s", ErrShopNotFound, input.ShopID)
	}
	if len(input.Items) == 0 {
		return "", ErrNoItems
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return "", ErrInvalidQuantity
		}
		if item.LandedCost <= 0 {
			return "", ErrInvalidLandedCost
		}
		if _, ok := s.master.ProductByID(item.ProductID); !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
		}
	}

	now := s.now().UTC()
	shipmentID := uuid.NewString()
	shipment := Shipment{
		ShopID:            input.ShopID,
		Date:              now,
		Status:            StatusPending,
		FreightCost:       input.FreightForwarder.Amount,
		ClearingCost:      input.ClearingAgent.Amount,
		CustomExpenseCost: input.CustomExpense.Amount,
		ExpectedDuty:      input.ExpectedDuty,
	}
	for _, item := range input.Items {
		shipment.Items = append(shipment.Items, Item{
			ProductID:        item.ProductID,
			ExpectedQuantity: item.Quantity,
			LandedCost:       item.LandedCost,
		})
	}

	writes := []docstore.Write{{
		Collection: docstore.CollectionShipments,
		ID:         shipmentID,
		Create:     true,
		Data:       shipment.Fields(),
	}}

	if input.FreightForwarder.Amount > 0 && input.FreightForwarder.CounterpartyID != "" {
		name := "N/A"
		if ff, ok := s.master.FreightForwarderByID(input.FreightForwarder.CounterpartyID); ok {
			name = ff.Name
		}
		writes = append(writes, s.overheadWrite(now, input.FreightForwarder.Amount,
			fmt.Sprintf("Freight Forwarder: %s for Shipment #%s", name, shipmentID)))
	}
	if input.ClearingAgent.Amount > 0 && input.ClearingAgent.CounterpartyID != "" {
		name := "N/A"
		if ca, ok := s.master.ClearingAgentByID(input.ClearingAgent.CounterpartyID); ok {
			name = ca.Name
		}
		writes = append(writes, s.overheadWrite(now, input.ClearingAgent.Amount,
			fmt.Sprintf("Clearing Agent: %s for Shipment #%s", name, shipmentID)))
	}
	if input.CustomExpense.Amount > 0 && input.CustomExpense.CounterpartyID != "" {
		name := "N/A"
		if cet, ok := s.master.CustomExpenseTypeByID(input.CustomExpense.CounterpartyID); ok {
			name = cet.Name
		}
		writes = append(writes, s.overheadWrite(now, input.CustomExpense.Amount,
			fmt.Sprintf("Custom Expense: %s for Shipment #%s", name, shipmentID)))
	}

	if err := s.store.ApplyBatch(ctx, writes); err != nil {
		return "", fmt.Errorf("shipments: create export: %w", err)
	}
	return shipmentID, nil
}

func (s *Service) overheadWrite(date time.Time, amount float64, description string) docstore.Write {
	row := ledger.Transaction{
		ShopID:      masterdata.HeadOfficeShopID,
		Type:        ledger.TypeExpense,
		Description: description,
		Amount:      amount,
		Date:        date,
	}
	return docstore.Write{
		Collection: docstore.CollectionTransactions,
		ID:         uuid.NewString(),
		Create:     true,
		Data:       row.Fields(),
	}
}

// ReceivedItem is one line of a shop's receipt.
type ReceivedItem struct {
	ProductID string
	Quantity  float64
}

// ReceiveResult reports the applied receipt.
type ReceiveResult struct {
	OverheadPerUnit float64
	ImportRows      int
	Warnings        []string
}

// Receive applies a shop's receipt to a PENDING shipment: overheads are
// spread evenly across the units actually received (short-shipments
// concentrate overhead onto fewer units), one IMPORT row is appended per
// received item, and the shipment flips to RECEIVED with the received
// quantities stamped. The whole effect commits in one batch.
func (s *Service) Receive(ctx context.Context, shipmentID string, received []ReceivedItem) (ReceiveResult, error) {
	shipment, ok := s.ShipmentByID(shipmentID)
	if !ok {
		return ReceiveResult{}, fmt.Errorf("%w: %s", ErrNotFound, shipmentID)
	}
	if shipment.Status != StatusPending {
		return ReceiveResult{}, fmt.Errorf("%w: %s", ErrAlreadyReceived, shipmentID)
	}
	for _, item := range received {
		if item.Quantity < 0 {
			return ReceiveResult{}, ErrInvalidQuantity
		}
	}

	var totalReceived float64
	receivedByProduct := make(map[string]float64, len(received))
	for _, item := range received {
		receivedByProduct[item.ProductID] = item.Quantity
		totalReceived += item.Quantity
	}

	// A receipt of all-zero quantities allocates no overhead and produces
	// no import rows; only the status flip is recorded.
	perUnit := 0.0
	if totalReceived > 0 {
		perUnit = shipment.TotalOverheads() / totalReceived
	}

	now := s.now().UTC()
	var (
		writes   []docstore.Write
		warnings []string
		imports  int
	)
	for _, item := range received {
		if item.Quantity <= 0 {
			continue
		}
		original, found := shipment.item(item.ProductID)
		if !found {
			warnings = append(warnings, fmt.Sprintf(
				"received product %s was not on the shipment; no import recorded", item.ProductID))
			continue
		}
		if _, ok := s.master.ProductByID(item.ProductID); !ok {
			warnings = append(warnings, fmt.Sprintf(
				"received product %s is not in the catalog; no import recorded", item.ProductID))
			continue
		}
		row := ledger.Transaction{
			ShopID:      shipment.ShopID,
			ProductID:   item.ProductID,
			Type:        ledger.TypeImport,
			Description: fmt.Sprintf("Stock from HO - Shipment #%s", shipment.ID),
			Amount:      original.LandedCost + perUnit,
			Quantity:    item.Quantity,
			Date:        now,
		}
		writes = append(writes, docstore.Write{
			Collection: docstore.CollectionTransactions,
			ID:         uuid.NewString(),
			Create:     true,
			Data:       row.Fields(),
		})
		imports++
	}

	updated := make([]Item, len(shipment.Items))
	for i, item := range shipment.Items {
		qty := receivedByProduct[item.ProductID]
		stamped := item
		stamped.ReceivedQuantity = &qty
		updated[i] = stamped
		if qty != item.ExpectedQuantity {
			warnings = append(warnings, fmt.Sprintf(
				"product %s: received %g of expected %g", item.ProductID, qty, item.ExpectedQuantity))
		}
	}
	shipment.Status = StatusReceived
	shipment.Items = updated
	writes = append(writes, docstore.Write{
		Collection: docstore.CollectionShipments,
		ID:         shipment.ID,
		Data:       shipment.Fields(),
	})

	if err := s.store.ApplyBatch(ctx, writes); err != nil {
		return ReceiveResult{}, fmt.Errorf("shipments: receive: %w", err)
	}
	return ReceiveResult{OverheadPerUnit: perUnit, ImportRows: imports, Warnings: warnings}, nil
}

// Shipments returns the current shipments snapshot.
func (s *Service) Shipments() []Shipment {
	return Decode(s.snaps.Snapshot(docstore.CollectionShipments))
}

// ShipmentsForShop lists shipments destined for one shop.
func (s *Service) ShipmentsForShop(shopID string) []Shipment {
	var out []Shipment
	for _, shipment := range s.Shipments() {
		if shipment.ShopID == shopID {
			out = append(out, shipment)
		}
	}
	return out
}

// ShipmentByID looks a shipment up in the current snapshot.
func (s *Service) ShipmentByID(id string) (Shipment, bool) {
	for _, shipment := range s.Shipments() {
		if shipment.ID == id {
			return shipment, true
		}
	}
	return Shipment{}, false
}

func (s Shipment) item(productID string) (Item, bool) {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}
