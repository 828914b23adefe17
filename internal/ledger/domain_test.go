package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

func TestFromDocumentQuantityNormalization(t *testing.T) {
	cases := []struct {
		name string
		data map[string]any
		want float64
	}{
		{
			name: "sale without quantity reads as one",
			data: map[string]any{"type": "CASH_SALE", "amount": 50.0},
			want: 1,
		},
		{
			name: "import without quantity reads as one",
			data: map[string]any{"type": "IMPORT", "amount": 12.0},
			want: 1,
		},
		{
			name: "explicit quantity wins",
			data: map[string]any{"type": "CREDIT_SALE", "amount": 50.0, "quantity": 3.0},
			want: 3,
		},
		{
			name: "receipt without quantity stays zero",
			data: map[string]any{"type": "SALES_RECEIPT", "amount": 100.0},
			want: 0,
		},
		{
			name: "expense without quantity stays zero",
			data: map[string]any{"type": "EXPENSE", "amount": 20.0},
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := FromDocument(docstore.Document{ID: "t1", Data: tc.data})
			require.Equal(t, tc.want, tx.Quantity)
		})
	}
}

func TestTransactionValue(t *testing.T) {
	sale := Transaction{Type: TypeCreditSale, Amount: 50, Quantity: 3}
	require.Equal(t, 150.0, sale.Value())

	imp := Transaction{Type: TypeImport, Amount: 12, Quantity: 10}
	require.Equal(t, 120.0, imp.Value())

	receipt := Transaction{Type: TypeSalesReceipt, Amount: 100}
	require.Equal(t, 100.0, receipt.Value())

	expense := Transaction{Type: TypeExpense, Amount: 20}
	require.Equal(t, 20.0, expense.Value())
}

func TestFieldsRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	original := Transaction{
		ShopID:     "shop-1",
		InvoiceID:  "inv-abc",
		ProductID:  "prod-1",
		Type:       TypeCashSale,
		Amount:     75,
		Quantity:   2,
		CustomerID: "cust-1",
		Date:       now,
	}

	decoded := FromDocument(docstore.Document{ID: "t1", Data: original.Fields()})
	original.ID = "t1"
	require.Equal(t, original, decoded)
}

func TestFieldsOmitsZeroOptionals(t *testing.T) {
	data := Transaction{
		ShopID: "shop-1",
		Type:   TypeExpense,
		Amount: 20,
		Date:   time.Now(),
	}.Fields()

	require.NotContains(t, data, "invoiceId")
	require.NotContains(t, data, "productId")
	require.NotContains(t, data, "quantity")
	require.NotContains(t, data, "customerId")
	require.NotContains(t, data, "expenseAccountId")
}
