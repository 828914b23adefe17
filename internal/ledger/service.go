package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
)

var (
	// ErrShopRequired indicates a missing shop id.
	ErrShopRequired = errors.New("ledger: shop required")
	// ErrCustomerRequired indicates a missing customer id.
	ErrCustomerRequired = errors.New("ledger: customer required")
	// ErrDateRequired indicates a missing transaction date.
	ErrDateRequired = errors.New("ledger: date required")
	// ErrNoItems indicates a sale without line items.
	ErrNoItems = errors.New("ledger: at least one item required")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("ledger: quantity must be positive")
	// ErrInvalidPrice indicates a non-positive sale price.
	ErrInvalidPrice = errors.New("ledger: sale price must be positive")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrCashNegative indicates a negative cash-paid figure.
	ErrCashNegative = errors.New("ledger: cash paid must not be negative")
	// ErrCashExceedsTotal indicates cash paid above the invoice total.
	ErrCashExceedsTotal = errors.New("ledger: cash paid exceeds invoice total")
	// ErrAccountRequired indicates an expense without an expense account.
	ErrAccountRequired = errors.New("ledger: expense account required")
	// ErrUnknownProduct indicates a sale line for a product not in the catalog.
	ErrUnknownProduct = errors.New("ledger: unknown product")
)

// InsufficientStockError rejects a sale line exceeding derived stock.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   float64
	Available   float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("ledger: sale quantity for %q (%g) exceeds available stock (%g)",
		e.ProductName, e.Requested, e.Available)
}

// StorePort is the write side of the document store.
type StorePort interface {
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	ApplyBatch(ctx context.Context, writes []docstore.Write) error
}

// SnapshotPort serves the current transactions snapshot.
type SnapshotPort interface {
	Snapshot(collection string) []docstore.Document
}

// CatalogPort resolves products for stock checks and price warnings.
type CatalogPort interface {
	ProductByID(id string) (masterdata.Product, bool)
}

// StockPort derives current stock for validation before a sale is accepted.
type StockPort interface {
	StockLevel(shopID, productID string) float64
}

// Service appends financial events to the ledger. All multi-row events go
// through one atomic batch so a reader never observes a partial invoice.
type Service struct {
	store   StorePort
	snaps   SnapshotPort
	catalog CatalogPort
	stock   StockPort
}

// NewService builds Service.
func NewService(store StorePort, snaps SnapshotPort, catalog CatalogPort, stock StockPort) *Service {
	return &Service{store: store, snaps: snaps, catalog: catalog, stock: stock}
}

// SaleItem is one invoice line.
type SaleItem struct {
	ProductID string
	Quantity  float64
	UnitPrice float64
}

// SaleInput describes a sale event, possibly multi-line and partially paid.
type SaleInput struct {
	ShopID     string
	CustomerID string
	Items      []SaleItem
	CashPaid   float64
	Date       time.Time
}

// SaleResult reports the committed invoice.
type SaleResult struct {
	InvoiceID string
	Type      TransactionType
	Total     float64
	Warnings  []string
}

// RecordSale validates and appends one invoice: a row per item plus, when
// cash changed hands, exactly one receipt row, all sharing the invoice id.
// Paying the full total (or more being rejected) classifies the invoice as
// a cash sale; anything less is credit.
func (s *Service) RecordSale(ctx context.Context, input SaleInput) (SaleResult, error) {
	if input.ShopID == "" {
		return SaleResult{}, ErrShopRequired
	}
	if input.CustomerID == "" {
		return SaleResult{}, ErrCustomerRequired
	}
	if input.Date.IsZero() {
		return SaleResult{}, ErrDateRequired
	}
	if len(input.Items) == 0 {
		return SaleResult{}, ErrNoItems
	}
	if input.CashPaid < 0 {
		return SaleResult{}, ErrCashNegative
	}

	var (
		total    float64
		warnings []string
		products = make([]masterdata.Product, len(input.Items))
	)
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			return SaleResult{}, ErrInvalidQuantity
		}
		if item.UnitPrice <= 0 {
			return SaleResult{}, ErrInvalidPrice
		}
		product, ok := s.catalog.ProductByID(item.ProductID)
		if !ok {
			return SaleResult{}, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductID)
		}
		available := s.stock.StockLevel(input.ShopID, item.ProductID)
		if item.Quantity > available {
			return SaleResult{}, &InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   available,
			}
		}
		if product.MinSalePrice > 0 && item.UnitPrice < product.MinSalePrice {
			warnings = append(warnings, fmt.Sprintf(
				"sale price %.2f for %q is below the minimum sale price %.2f",
				item.UnitPrice, product.Name, product.MinSalePrice))
		}
		products[i] = product
		total += item.UnitPrice * item.Quantity
	}
	if input.CashPaid > total {
		return SaleResult{}, ErrCashExceedsTotal
	}

	// Paying exactly the full amount is a cash sale, not credit.
	saleType := TypeCreditSale
	label := "Credit Sale"
	if input.CashPaid >= total {
		saleType = TypeCashSale
		label = "Cash Sale"
	}
	invoiceID := "inv-" + uuid.NewString()

	writes := make([]docstore.Write, 0, len(input.Items)+1)
	for i, item := range input.Items {
		row := Transaction{
			ShopID:      input.ShopID,
			InvoiceID:   invoiceID,
			ProductID:   item.ProductID,
			Type:        saleType,
			Description: fmt.Sprintf("%s: %s", label, products[i].Name),
			Amount:      item.UnitPrice,
			Quantity:    item.Quantity,
			CustomerID:  input.CustomerID,
			Date:        input.Date,
		}
		writes = append(writes, docstore.Write{
			Collection: docstore.CollectionTransactions,
			ID:         uuid.NewString(),
			Create:     true,
			Data:       row.Fields(),
		})
	}
	if input.CashPaid > 0 {
		receipt := Transaction{
			ShopID:      input.ShopID,
			InvoiceID:   invoiceID,
			Type:        TypeSalesReceipt,
			Description: fmt.Sprintf("Payment for invoice %s", invoiceID),
			Amount:      input.CashPaid,
			CustomerID:  input.CustomerID,
			Date:        input.Date,
		}
		writes = append(writes, docstore.Write{
			Collection: docstore.CollectionTransactions,
			ID:         uuid.NewString(),
			Create:     true,
			Data:       receipt.Fields(),
		})
	}

	if err := s.store.ApplyBatch(ctx, writes); err != nil {
		return SaleResult{}, fmt.Errorf("ledger: record sale: %w", err)
	}
	return SaleResult{InvoiceID: invoiceID, Type: saleType, Total: total, Warnings: warnings}, nil
}

// PaymentInput describes a standalone customer payment.
type PaymentInput struct {
	ShopID     string
	CustomerID string
	Amount     float64
	Date       time.Time
	Notes      string
}

// RecordPayment appends a single receipt row with no invoice id. The ledger
// itself does not police the outstanding balance; callers that want the
// ceiling enforce it before calling.
func (s *Service) RecordPayment(ctx context.Context, input PaymentInput) (string, error) {
	if input.ShopID == "" {
		return "", ErrShopRequired
	}
	if input.CustomerID == "" {
		return "", ErrCustomerRequired
	}
	if input.Date.IsZero() {
		return "", ErrDateRequired
	}
	if input.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	description := input.Notes
	if description == "" {
		description = "Payment received from customer"
	}
	row := Transaction{
		ShopID:      input.ShopID,
		Type:        TypeSalesReceipt,
		Description: description,
		Amount:      input.Amount,
		CustomerID:  input.CustomerID,
		Date:        input.Date,
	}
	id, err := s.store.Add(ctx, docstore.CollectionTransactions, row.Fields())
	if err != nil {
		return "", fmt.Errorf("ledger: record payment: %w", err)
	}
	return id, nil
}

// ExpenseInput describes an operating expense scoped to a shop, or to the
// head-office pseudo-shop for shipment overheads.
type ExpenseInput struct {
	ShopID           string
	ExpenseAccountID string
	Description      string
	Amount           float64
	Date             time.Time
}

// RecordExpense appends a single expense row.
func (s *Service) RecordExpense(ctx context.Context, input ExpenseInput) (string, error) {
	if input.ShopID == "" {
		return "", ErrShopRequired
	}
	if input.ExpenseAccountID == "" && input.ShopID != masterdata.HeadOfficeShopID {
		return "", ErrAccountRequired
	}
	if input.Date.IsZero() {
		return "", ErrDateRequired
	}
	if input.Amount <= 0 {
		return "", ErrInvalidAmount
	}
	row := Transaction{
		ShopID:           input.ShopID,
		Type:             TypeExpense,
		Description:      input.Description,
		Amount:           input.Amount,
		ExpenseAccountID: input.ExpenseAccountID,
		Date:             input.Date,
	}
	id, err := s.store.Add(ctx, docstore.CollectionTransactions, row.Fields())
	if err != nil {
		return "", fmt.Errorf("ledger: record expense: %w", err)
	}
	return id, nil
}

// Transactions returns the current normalized ledger snapshot.
func (s *Service) Transactions() []Transaction {
	return Decode(s.snaps.Snapshot(docstore.CollectionTransactions))
}
