package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/docstore/memory"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
)

type storeSnapshots struct {
	store *memory.Store
}

func (s storeSnapshots) Snapshot(collection string) []docstore.Document {
	docs, _ := s.store.List(context.Background(), collection)
	return docs
}

type fakeCatalog map[string]masterdata.Product

func (c fakeCatalog) ProductByID(id string) (masterdata.Product, bool) {
	p, ok := c[id]
	return p, ok
}

type fakeStock map[string]float64

func (s fakeStock) StockLevel(shopID, productID string) float64 {
	return s[shopID+"/"+productID]
}

func newTestService(t *testing.T, catalog fakeCatalog, stock fakeStock) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, storeSnapshots{store}, catalog, stock)
	return svc, store
}

func saleDate() time.Time {
	return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
}

func TestRecordSaleFullCashIsCashSale(t *testing.T) {
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget"}}
	stock := fakeStock{"shop-1/p1": 10}
	svc, _ := newTestService(t, catalog, stock)

	res, err := svc.RecordSale(context.Background(), SaleInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Items:      []SaleItem{{ProductID: "p1", Quantity: 2, UnitPrice: 50}},
		CashPaid:   100,
		Date:       saleDate(),
	})
	require.NoError(t, err)
	require.Equal(t, TypeCashSale, res.Type)
	require.Equal(t, 100.0, res.Total)

	txs := svc.Transactions()
	require.Len(t, txs, 2)
	require.Equal(t, TypeCashSale, txs[0].Type)
	require.Equal(t, TypeSalesReceipt, txs[1].Type)
	require.Equal(t, res.InvoiceID, txs[0].InvoiceID)
	require.Equal(t, res.InvoiceID, txs[1].InvoiceID)
}

func TestRecordSalePartialCashIsCreditWithOneReceipt(t *testing.T) {
	catalog := fakeCatalog{
		"p1": {ID: "p1", Name: "Widget"},
		"p2": {ID: "p2", Name: "Gadget"},
	}
	stock := fakeStock{"shop-1/p1": 10, "shop-1/p2": 10}
	svc, _ := newTestService(t, catalog, stock)

	res, err := svc.RecordSale(context.Background(), SaleInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Items: []SaleItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: 50},
			{ProductID: "p2", Quantity: 1, UnitPrice: 30},
		},
		CashPaid: 40,
		Date:     saleDate(),
	})
	require.NoError(t, err)
	require.Equal(t, TypeCreditSale, res.Type)
	require.Equal(t, 130.0, res.Total)

	var receipts int
	for _, tx := range svc.Transactions() {
		require.Equal(t, res.InvoiceID, tx.InvoiceID)
		if tx.Type == TypeSalesReceipt {
			receipts++
			require.Equal(t, 40.0, tx.Amount)
		}
	}
	require.Equal(t, 1, receipts)
}

func TestRecordSaleNoCashNoReceipt(t *testing.T) {
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget"}}
	stock := fakeStock{"shop-1/p1": 10}
	svc, _ := newTestService(t, catalog, stock)

	res, err := svc.RecordSale(context.Background(), SaleInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Items:      []SaleItem{{ProductID: "p1", Quantity: 1, UnitPrice: 50}},
		Date:       saleDate(),
	})
	require.NoError(t, err)
	require.Equal(t, TypeCreditSale, res.Type)
	require.Len(t, svc.Transactions(), 1)
}

func TestRecordSaleCashAboveTotalRejected(t *testing.T) {
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget"}}
	stock := fakeStock{"shop-1/p1": 10}
	svc, _ := newTestService(t, catalog, stock)

	_, err := svc.RecordSale(context.Background(), SaleInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Items:      []SaleItem{{ProductID: "p1", Quantity: 1, UnitPrice: 50}},
		CashPaid:   60,
		Date:       saleDate(),
	})
	require.ErrorIs(t, err, ErrCashExceedsTotal)
	require.Empty(t, svc.Transactions())
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget"}}
	stock := fakeStock{"shop-1/p1": 2}
	svc, _ := newTestService(t, catalog, stock)

	_, err := svc.RecordSale(context.Background(), SaleInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Items:      []SaleItem{{ProductID: "p1", Quantity: 5, UnitPrice: 50}},
		Date:       saleDate(),
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "Widget", stockErr.ProductName)
	require.Equal(t, 5.0, stockErr.Requested)
	require.Equal(t, 2.0, stockErr.Available)
	require.Contains(t, err.Error(), "Widget")
	require.Empty(t, svc.Transactions())
}

func TestRecordSaleBelowMinimumPriceWarns(t *testing.T) {
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget", MinSalePrice: 40}}
	stock := fakeStock{"shop-1/p1": 10}
	svc, _ := newTestService(t, catalog, stock)

	res, err := svc.RecordSale(context.Background(), SaleInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Items:      []SaleItem{{ProductID: "p1", Quantity: 1, UnitPrice: 35}},
		Date:       saleDate(),
	})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "Widget")
	require.Contains(t, res.Warnings[0], "minimum sale price")
	// Warnings never block the write.
	require.Len(t, svc.Transactions(), 1)
}

func TestRecordSaleValidation(t *testing.T) {
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget"}}
	stock := fakeStock{"shop-1/p1": 10}
	svc, _ := newTestService(t, catalog, stock)

	item := SaleItem{ProductID: "p1", Quantity: 1, UnitPrice: 50}
	cases := []struct {
		name  string
		input SaleInput
		want  error
	}{
		{"missing shop", SaleInput{CustomerID: "c", Items: []SaleItem{item}, Date: saleDate()}, ErrShopRequired},
		{"missing customer", SaleInput{ShopID: "shop-1", Items: []SaleItem{item}, Date: saleDate()}, ErrCustomerRequired},
		{"missing date", SaleInput{ShopID: "shop-1", CustomerID: "c", Items: []SaleItem{item}}, ErrDateRequired},
		{"no items", SaleInput{ShopID: "shop-1", CustomerID: "c", Date: saleDate()}, ErrNoItems},
		{"negative cash", SaleInput{ShopID: "shop-1", CustomerID: "c", Items: []SaleItem{item}, CashPaid: -1, Date: saleDate()}, ErrCashNegative},
		{"zero quantity", SaleInput{ShopID: "shop-1", CustomerID: "c", Items: []SaleItem{{ProductID: "p1", UnitPrice: 50}}, Date: saleDate()}, ErrInvalidQuantity},
		{"zero price", SaleInput{ShopID: "shop-1", CustomerID: "c", Items: []SaleItem{{ProductID: "p1", Quantity: 1}}, Date: saleDate()}, ErrInvalidPrice},
		{"unknown product", SaleInput{ShopID: "shop-1", CustomerID: "c", Items: []SaleItem{{ProductID: "nope", Quantity: 1, UnitPrice: 5}}, Date: saleDate()}, ErrUnknownProduct},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordSale(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.Empty(t, svc.Transactions())
}

func TestRecordSaleAtomicOnBatchFailure(t *testing.T) {
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget"}}
	stock := fakeStock{"shop-1/p1": 10}
	store := memory.New()

	failing := &failingStore{Store: store}
	svc := NewService(failing, storeSnapshots{store}, catalog, stock)

	_, err := svc.RecordSale(context.Background(), SaleInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Items:      []SaleItem{{ProductID: "p1", Quantity: 1, UnitPrice: 50}},
		CashPaid:   50,
		Date:       saleDate(),
	})
	require.Error(t, err)
	require.Empty(t, svc.Transactions())
}

type failingStore struct {
	*memory.Store
}

func (s *failingStore) ApplyBatch(ctx context.Context, writes []docstore.Write) error {
	return errors.New("write refused")
}

func TestRecordPayment(t *testing.T) {
	svc, _ := newTestService(t, fakeCatalog{}, fakeStock{})

	id, err := svc.RecordPayment(context.Background(), PaymentInput{
		ShopID:     "shop-1",
		CustomerID: "cust-1",
		Amount:     40,
		Date:       saleDate(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	txs := svc.Transactions()
	require.Len(t, txs, 1)
	require.Equal(t, TypeSalesReceipt, txs[0].Type)
	require.Empty(t, txs[0].InvoiceID)
	require.Equal(t, "Payment received from customer", txs[0].Description)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _ := newTestService(t, fakeCatalog{}, fakeStock{})
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, PaymentInput{CustomerID: "c", Amount: 10, Date: saleDate()})
	require.ErrorIs(t, err, ErrShopRequired)

	_, err = svc.RecordPayment(ctx, PaymentInput{ShopID: "s", Amount: 10, Date: saleDate()})
	require.ErrorIs(t, err, ErrCustomerRequired)

	_, err = svc.RecordPayment(ctx, PaymentInput{ShopID: "s", CustomerID: "c", Date: saleDate()})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRecordExpenseRequiresAccountOutsideHeadOffice(t *testing.T) {
	svc, _ := newTestService(t, fakeCatalog{}, fakeStock{})
	ctx := context.Background()

	_, err := svc.RecordExpense(ctx, ExpenseInput{
		ShopID: "shop-1",
		Amount: 20,
		Date:   saleDate(),
	})
	require.ErrorIs(t, err, ErrAccountRequired)

	id, err := svc.RecordExpense(ctx, ExpenseInput{
		ShopID:      masterdata.HeadOfficeShopID,
		Description: "Freight Forwarder: Acme for Shipment #s1",
		Amount:      20,
		Date:        saleDate(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	txs := svc.Transactions()
	require.Len(t, txs, 1)
	require.Equal(t, masterdata.HeadOfficeShopID, txs[0].ShopID)
	require.Empty(t, txs[0].ExpenseAccountID)
}
