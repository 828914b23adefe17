// Package ledger defines the immutable transaction log every financial and
// inventory derivation folds over. Rows are append-only; nothing in this
// package edits or deletes a committed transaction.
package ledger

import (
	"time"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

// TransactionType enumerates ledger row kinds.
type TransactionType string

const (
	TypeCashSale     TransactionType = "CASH_SALE"
	TypeCreditSale   TransactionType = "CREDIT_SALE"
	TypeSalesReceipt TransactionType = "SALES_RECEIPT"
	TypeExpense      TransactionType = "EXPENSE"
	TypeImport       TransactionType = "IMPORT"
)

// IsSale reports whether the type is one of the two sale kinds.
func (t TransactionType) IsSale() bool {
	return t == TypeCashSale || t == TypeCreditSale
}

// Transaction is one ledger row. Amount semantics depend on Type: per-unit
// price for sales and imports, total value for receipts and expenses.
type Transaction struct {
	ID               string
	ShopID           string
	InvoiceID        string
	ProductID        string
	Type             TransactionType
	Description      string
	Amount           float64
	Quantity         float64
	CustomerID       string
	ExpenseAccountID string
	Date             time.Time
}

// Value is the row's monetary value: Amount×Quantity for sales and imports,
// Amount for everything else.
func (t Transaction) Value() float64 {
	if t.Type.IsSale() || t.Type == TypeImport {
		return t.Amount * t.Quantity
	}
	return t.Amount
}

// FromDocument decodes a ledger row. Quantity normalization happens here,
// once, at the read boundary: a sale or import row with no quantity field
// reads as quantity 1, never zero.
func FromDocument(doc docstore.Document) Transaction {
	t := Transaction{
		ID:               doc.ID,
		ShopID:           docstore.Str(doc.Data, "shopId"),
		InvoiceID:        docstore.Str(doc.Data, "invoiceId"),
		ProductID:        docstore.Str(doc.Data, "productId"),
		Type:             TransactionType(docstore.Str(doc.Data, "type")),
		Description:      docstore.Str(doc.Data, "description"),
		Amount:           docstore.Num(doc.Data, "amount"),
		CustomerID:       docstore.Str(doc.Data, "customerId"),
		ExpenseAccountID: docstore.Str(doc.Data, "expenseAccountId"),
		Date:             docstore.Time(doc.Data, "date"),
	}
	qty, present := docstore.NumOK(doc.Data, "quantity")
	switch {
	case present:
		t.Quantity = qty
	case t.Type.IsSale() || t.Type == TypeImport:
		t.Quantity = 1
	}
	return t
}

// Fields encodes the row for persistence. Zero-valued optional fields are
// omitted so documents keep the sparse shape the collections use.
func (t Transaction) Fields() map[string]any {
	data := map[string]any{
		"shopId":      t.ShopID,
		"type":        string(t.Type),
		"description": t.Description,
		"amount":      t.Amount,
		"date":        t.Date,
	}
	if t.InvoiceID != "" {
		data["invoiceId"] = t.InvoiceID
	}
	if t.ProductID != "" {
		data["productId"] = t.ProductID
	}
	if t.Quantity != 0 {
		data["quantity"] = t.Quantity
	}
	if t.CustomerID != "" {
		data["customerId"] = t.CustomerID
	}
	if t.ExpenseAccountID != "" {
		data["expenseAccountId"] = t.ExpenseAccountID
	}
	return data
}

// Decode folds a collection snapshot into normalized rows, preserving the
// snapshot's insertion order.
func Decode(docs []docstore.Document) []Transaction {
	out := make([]Transaction, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}
