package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
)

type fakeSnapshots map[string][]docstore.Document

func (f fakeSnapshots) Snapshot(collection string) []docstore.Document {
	return f[collection]
}

type fakeMaster struct {
	shops     []masterdata.Shop
	products  []masterdata.Product
	customers map[string]masterdata.Customer
}

func (f fakeMaster) Shops() []masterdata.Shop         { return f.shops }
func (f fakeMaster) Products() []masterdata.Product   { return f.products }
func (f fakeMaster) CustomerByID(id string) (masterdata.Customer, bool) {
	c, ok := f.customers[id]
	return c, ok
}
func (f fakeMaster) ShopByID(id string) (masterdata.Shop, bool) {
	for _, s := range f.shops {
		if s.ID == id {
			return s, true
		}
	}
	return masterdata.Shop{}, false
}

func txDoc(id string, data map[string]any) docstore.Document {
	return docstore.Document{ID: id, Data: data}
}

func newTestReports() *Service {
	snaps := fakeSnapshots{
		docstore.CollectionTransactions: {
			txDoc("t1", map[string]any{
				"shopId": "s1", "productId": "p1", "type": "IMPORT",
				"amount": 12.0, "quantity": 10.0,
				"date": time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano),
			}),
			txDoc("t2", map[string]any{
				"shopId": "s1", "productId": "p1", "type": "CASH_SALE", "invoiceId": "inv-1",
				"amount": 20.0, "quantity": 4.0, "customerId": "c1",
				"date": time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano),
			}),
		},
	}
	master := fakeMaster{
		shops:     []masterdata.Shop{{ID: "s1", Name: "Lagos Store", IsActive: true}},
		products:  []masterdata.Product{{ID: "p1", Name: "Widget", HOCost: 10}},
		customers: map[string]masterdata.Customer{"c1": {ID: "c1", Name: "Ada"}},
	}
	return NewService(snaps, master)
}

func TestServiceStockLevelFromSnapshot(t *testing.T) {
	svc := newTestReports()
	require.Equal(t, 6.0, svc.StockLevel("s1", "p1"))
	require.Equal(t, 0.0, svc.StockLevel("s1", "ghost"))
}

func TestServiceCustomerLedgerUnknownCustomer(t *testing.T) {
	svc := newTestReports()

	_, err := svc.CustomerLedger("ghost")
	require.ErrorIs(t, err, ErrCustomerNotFound)

	led, err := svc.CustomerLedger("c1")
	require.NoError(t, err)
	require.Len(t, led.Entries, 1)
	require.Equal(t, 80.0, led.Balance)
}

func TestServiceIncomeStatement(t *testing.T) {
	svc := newTestReports()

	stmt := svc.IncomeStatement("s1")
	require.Equal(t, 80.0, stmt.Revenue)
	require.Equal(t, 40.0, stmt.COGS)
}

func TestWorkbooks(t *testing.T) {
	svc := newTestReports()

	f, err := svc.IncomeStatementWorkbook("s1")
	require.NoError(t, err)
	cell, err := f.GetCellValue("Income Statement", "A1")
	require.NoError(t, err)
	require.Equal(t, "Income Statement - Lagos Store", cell)

	f, err = svc.InventoryWorkbook("s1")
	require.NoError(t, err)
	name, err := f.GetCellValue("Inventory", "A2")
	require.NoError(t, err)
	require.Equal(t, "Widget", name)

	_, err = svc.IncomeStatementWorkbook("ghost")
	require.ErrorIs(t, err, ErrShopNotFound)

	// The head-office pseudo-shop is always exportable.
	_, err = svc.IncomeStatementWorkbook(masterdata.HeadOfficeShopID)
	require.NoError(t, err)
}
