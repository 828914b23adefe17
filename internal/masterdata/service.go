package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

var (
	// ErrNameRequired indicates a reference entity without a name.
	ErrNameRequired = errors.New("masterdata: name required")
	// ErrShopRequired indicates a customer without an owning shop.
	ErrShopRequired = errors.New("masterdata: shop required")
	// ErrInvalidRate indicates a non-positive currency rate.
	ErrInvalidRate = errors.New("masterdata: rate must be positive")
	// ErrShopNotFound indicates a reference to an unknown shop.
	ErrShopNotFound = errors.New("masterdata: shop not found")
	// ErrCurrencyNotFound indicates a rate update for an unknown currency.
	ErrCurrencyNotFound = errors.New("masterdata: currency not found")
)

// StorePort is the write side of the document store.
type StorePort interface {
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	ApplyBatch(ctx context.Context, writes []docstore.Write) error
}

// SnapshotPort serves current collection snapshots.
type SnapshotPort interface {
	Snapshot(collection string) []docstore.Document
}

// Service owns reference-entity creation and lookup. Entities have no
// lifecycle beyond create, except shops (deactivation) and currency rates.
type Service struct {
	store StorePort
	snaps SnapshotPort
}

// NewService builds Service.
func NewService(store StorePort, snaps SnapshotPort) *Service {
	return &Service{store: store, snaps: snaps}
}

// CreateShop registers a new shop, active by default.
func (s *Service) CreateShop(ctx context.Context, name, location string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNameRequired
	}
	return s.store.Add(ctx, docstore.CollectionShops, map[string]any{
		"name":     name,
		"location": location,
		"isActive": true,
	})
}

// SetShopActive flips a shop's active flag. Shops are never deleted.
func (s *Service) SetShopActive(ctx context.Context, shopID string, active bool) error {
	if _, ok := s.shopByID(shopID); !ok {
		return fmt.Errorf("%w: %s", ErrShopNotFound, shopID)
	}
	return s.store.ApplyBatch(ctx, []docstore.Write{{
		Collection: docstore.CollectionShops,
		ID:         shopID,
		Data:       map[string]any{"isActive": active},
	}})
}

// CreateProduct registers a catalog product. hoCost is the canonical unit
// cost for COGS; it is immutable once transactions reference the product.
func (s *Service) CreateProduct(ctx context.Context, p Product) (string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", ErrNameRequired
	}
	if p.HOCost < 0 || p.MinSalePrice < 0 {
		return "", errors.New("masterdata: costs must not be negative")
	}
	return s.store.Add(ctx, docstore.CollectionProducts, map[string]any{
		"name":         p.Name,
		"category":     p.Category,
		"hoCost":       p.HOCost,
		"minSalePrice": p.MinSalePrice,
	})
}

// CreateCustomer registers a customer under a shop.
func (s *Service) CreateCustomer(ctx context.Context, c Customer) (string, error) {
	if strings.TrimSpace(c.Name) == "" {
		return "", ErrNameRequired
	}
	if c.ShopID == "" {
		return "", ErrShopRequired
	}
	if _, ok := s.shopByID(c.ShopID); !ok {
		return "", fmt.Errorf("%w: %s", ErrShopNotFound, c.ShopID)
	}
	return s.store.Add(ctx, docstore.CollectionCustomers, map[string]any{
		"name":      c.Name,
		"shopId":    c.ShopID,
		"phone":     c.Phone,
		"reference": c.Reference,
	})
}

// CreateUser registers a dashboard user (reference data only).
func (s *Service) CreateUser(ctx context.Context, u User) (string, error) {
	if strings.TrimSpace(u.Name) == "" {
		return "", ErrNameRequired
	}
	if u.Role != RoleHeadOffice && u.Role != RoleShopOperator {
		return "", fmt.Errorf("masterdata: unknown role %q", u.Role)
	}
	if u.Role == RoleShopOperator && u.ShopID == "" {
		return "", ErrShopRequired
	}
	data := map[string]any{"name": u.Name, "role": string(u.Role)}
	if u.ShopID != "" {
		data["shopId"] = u.ShopID
	}
	return s.store.Add(ctx, docstore.CollectionUsers, data)
}

// CreateClearingAgent registers an overhead counterparty.
func (s *Service) CreateClearingAgent(ctx context.Context, name, contact string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNameRequired
	}
	return s.store.Add(ctx, docstore.CollectionClearingAgents, map[string]any{
		"name":    name,
		"contact": contact,
	})
}

// CreateFreightForwarder registers an overhead counterparty.
func (s *Service) CreateFreightForwarder(ctx context.Context, name, contact string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNameRequired
	}
	return s.store.Add(ctx, docstore.CollectionFreightForwarders, map[string]any{
		"name":    name,
		"contact": contact,
	})
}

// CreateCustomExpenseType registers an overhead category.
func (s *Service) CreateCustomExpenseType(ctx context.Context, name, description string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNameRequired
	}
	return s.store.Add(ctx, docstore.CollectionCustomExpenseTypes, map[string]any{
		"name":        name,
		"description": description,
	})
}

// CreateExpenseAccount registers a shop operating-expense account.
func (s *Service) CreateExpenseAccount(ctx context.Context, name, description string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNameRequired
	}
	return s.store.Add(ctx, docstore.CollectionExpenseAccounts, map[string]any{
		"name":        name,
		"description": description,
	})
}

// CreateCurrency registers a currency with its initial conversion rate
// against the USD base.
func (s *Service) CreateCurrency(ctx context.Context, c Currency) (string, error) {
	if strings.TrimSpace(c.Code) == "" {
		return "", ErrNameRequired
	}
	if c.Rate <= 0 {
		return "", ErrInvalidRate
	}
	return s.store.Add(ctx, docstore.CollectionCurrencies, map[string]any{
		"code": c.Code,
		"name": c.Name,
		"rate": c.Rate,
	})
}

// UpdateCurrencyRate sets a currency's conversion rate against the USD base.
func (s *Service) UpdateCurrencyRate(ctx context.Context, currencyID string, rate float64) error {
	if rate <= 0 {
		return ErrInvalidRate
	}
	found := false
	for _, doc := range s.snaps.Snapshot(docstore.CollectionCurrencies) {
		if doc.ID == currencyID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrCurrencyNotFound, currencyID)
	}
	return s.store.ApplyBatch(ctx, []docstore.Write{{
		Collection: docstore.CollectionCurrencies,
		ID:         currencyID,
		Data:       map[string]any{"rate": rate},
	}})
}

// Shops lists all shops.
func (s *Service) Shops() []Shop {
	docs := s.snaps.Snapshot(docstore.CollectionShops)
	out := make([]Shop, 0, len(docs))
	for _, doc := range docs {
		out = append(out, shopFromDocument(doc))
	}
	return out
}

// ActiveShops lists shops that have not been deactivated.
func (s *Service) ActiveShops() []Shop {
	var out []Shop
	for _, shop := range s.Shops() {
		if shop.IsActive {
			out = append(out, shop)
		}
	}
	return out
}

// Products lists the catalog.
func (s *Service) Products() []Product {
	docs := s.snaps.Snapshot(docstore.CollectionProducts)
	out := make([]Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, productFromDocument(doc))
	}
	return out
}

// ProductByID looks a product up in the current snapshot.
func (s *Service) ProductByID(id string) (Product, bool) {
	for _, doc := range s.snaps.Snapshot(docstore.CollectionProducts) {
		if doc.ID == id {
			return productFromDocument(doc), true
		}
	}
	return Product{}, false
}

// Customers lists customers, optionally scoped to one shop.
func (s *Service) Customers(shopID string) []Customer {
	docs := s.snaps.Snapshot(docstore.CollectionCustomers)
	out := make([]Customer, 0, len(docs))
	for _, doc := range docs {
		c := customerFromDocument(doc)
		if shopID != "" && c.ShopID != shopID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CustomerByID looks a customer up in the current snapshot.
func (s *Service) CustomerByID(id string) (Customer, bool) {
	for _, doc := range s.snaps.Snapshot(docstore.CollectionCustomers) {
		if doc.ID == id {
			return customerFromDocument(doc), true
		}
	}
	return Customer{}, false
}

// Users lists dashboard users.
func (s *Service) Users() []User {
	docs := s.snaps.Snapshot(docstore.CollectionUsers)
	out := make([]User, 0, len(docs))
	for _, doc := range docs {
		out = append(out, userFromDocument(doc))
	}
	return out
}

// ClearingAgents lists overhead counterparties.
func (s *Service) ClearingAgents() []ClearingAgent {
	docs := s.snaps.Snapshot(docstore.CollectionClearingAgents)
	out := make([]ClearingAgent, 0, len(docs))
	for _, doc := range docs {
		out = append(out, clearingAgentFromDocument(doc))
	}
	return out
}

// ClearingAgentByID looks an agent up in the current snapshot.
func (s *Service) ClearingAgentByID(id string) (ClearingAgent, bool) {
	for _, a := range s.ClearingAgents() {
		if a.ID == id {
			return a, true
		}
	}
	return ClearingAgent{}, false
}

// FreightForwarders lists overhead counterparties.
func (s *Service) FreightForwarders() []FreightForwarder {
	docs := s.snaps.Snapshot(docstore.CollectionFreightForwarders)
	out := make([]FreightForwarder, 0, len(docs))
	for _, doc := range docs {
		out = append(out, freightForwarderFromDocument(doc))
	}
	return out
}

// FreightForwarderByID looks a forwarder up in the current snapshot.
func (s *Service) FreightForwarderByID(id string) (FreightForwarder, bool) {
	for _, f := range s.FreightForwarders() {
		if f.ID == id {
			return f, true
		}
	}
	return FreightForwarder{}, false
}

// CustomExpenseTypes lists overhead categories.
func (s *Service) CustomExpenseTypes() []CustomExpenseType {
	docs := s.snaps.Snapshot(docstore.CollectionCustomExpenseTypes)
	out := make([]CustomExpenseType, 0, len(docs))
	for _, doc := range docs {
		out = append(out, customExpenseTypeFromDocument(doc))
	}
	return out
}

// CustomExpenseTypeByID looks a category up in the current snapshot.
func (s *Service) CustomExpenseTypeByID(id string) (CustomExpenseType, bool) {
	for _, t := range s.CustomExpenseTypes() {
		if t.ID == id {
			return t, true
		}
	}
	return CustomExpenseType{}, false
}

// ExpenseAccounts lists operating-expense accounts.
func (s *Service) ExpenseAccounts() []ExpenseAccount {
	docs := s.snaps.Snapshot(docstore.CollectionExpenseAccounts)
	out := make([]ExpenseAccount, 0, len(docs))
	for _, doc := range docs {
		out = append(out, expenseAccountFromDocument(doc))
	}
	return out
}

// ExpenseAccountByID looks an account up in the current snapshot.
func (s *Service) ExpenseAccountByID(id string) (ExpenseAccount, bool) {
	for _, a := range s.ExpenseAccounts() {
		if a.ID == id {
			return a, true
		}
	}
	return ExpenseAccount{}, false
}

// Currencies lists configured conversion rates.
func (s *Service) Currencies() []Currency {
	docs := s.snaps.Snapshot(docstore.CollectionCurrencies)
	out := make([]Currency, 0, len(docs))
	for _, doc := range docs {
		out = append(out, currencyFromDocument(doc))
	}
	return out
}

func (s *Service) shopByID(id string) (Shop, bool) {
	for _, shop := range s.Shops() {
		if shop.ID == id {
			return shop, true
		}
	}
	return Shop{}, false
}

// ShopByID looks a shop up in the current snapshot.
func (s *Service) ShopByID(id string) (Shop, bool) {
	return s.shopByID(id)
}
