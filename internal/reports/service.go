package reports

import (
	"errors"

	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/ledger"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
)

var (
	// ErrCustomerNotFound indicates a ledger request for an unknown customer.
	ErrCustomerNotFound = errors.New("reports: customer not found")
	// ErrShopNotFound indicates a report request for an unknown shop.
	ErrShopNotFound = errors.New("reports: shop not found")
)

// SnapshotPort serves current collection snapshots.
type SnapshotPort interface {
	Snapshot(collection string) []docstore.Document
}

// MasterdataPort resolves reference entities used by derivations.
type MasterdataPort interface {
	Shops() []masterdata.Shop
	Products() []masterdata.Product
	CustomerByID(id string) (masterdata.Customer, bool)
	ShopByID(id string) (masterdata.Shop, bool)
}

// Service recomputes every report from the latest snapshot on demand. It
// holds no derived state between calls.
type Service struct {
	snaps  SnapshotPort
	master MasterdataPort
}

// NewService builds Service.
func NewService(snaps SnapshotPort, master MasterdataPort) *Service {
	return &Service{snaps: snaps, master: master}
}

func (s *Service) transactions() []ledger.Transaction {
	return ledger.Decode(s.snaps.Snapshot(docstore.CollectionTransactions))
}

func (s *Service) catalog() map[string]masterdata.Product {
	products := s.master.Products()
	out := make(map[string]masterdata.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}

// StockLevel derives on-hand stock for a shop and product. Satisfies the
// ledger's stock-check port.
func (s *Service) StockLevel(shopID, productID string) float64 {
	return StockLevel(s.transactions(), shopID, productID)
}

// StockReport derives a shop's inventory position across the catalog.
func (s *Service) StockReport(shopID string) []StockLine {
	return StockReport(s.transactions(), shopID, s.master.Products())
}

// IncomeStatement derives a shop's income statement.
func (s *Service) IncomeStatement(shopID string) IncomeStatement {
	return DeriveIncomeStatement(s.transactions(), shopID, s.catalog())
}

// CustomerLedger derives a customer's statement and final balance.
func (s *Service) CustomerLedger(customerID string) (CustomerLedger, error) {
	if _, ok := s.master.CustomerByID(customerID); !ok {
		return CustomerLedger{}, ErrCustomerNotFound
	}
	return DeriveCustomerLedger(s.transactions(), customerID), nil
}

// CustomerBalance derives a customer's outstanding balance (0 with no
// entries).
func (s *Service) CustomerBalance(customerID string) float64 {
	return DeriveCustomerLedger(s.transactions(), customerID).Balance
}

// ShopPerformance aggregates every active shop.
func (s *Service) ShopPerformance() []ShopPerformance {
	return DeriveShopPerformance(s.transactions(), s.master.Shops(), s.catalog())
}

// ProductComparison compares a product's average sale price and import cost
// across active shops.
func (s *Service) ProductComparison(productID string) []ProductShopStats {
	return DeriveProductComparison(s.transactions(), s.master.Shops(), productID)
}

// NetworkSummary derives the head-office dashboard across all shops.
func (s *Service) NetworkSummary() Summary {
	return DeriveSummary(s.transactions(), s.master.Shops(), s.master.Products())
}

// ShopSummary derives one shop's dashboard.
func (s *Service) ShopSummary(shopID string) Summary {
	txs := FilterShop(s.transactions(), shopID)
	return DeriveSummary(txs, s.master.Shops(), s.master.Products())
}
