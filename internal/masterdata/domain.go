// Package masterdata holds the reference entities shared across the ledger:
// shops, products, customers and the head-office lookup tables used to
// categorise overheads and operating expenses.
package masterdata

import (
	"github.com/tradepost-hq/tradepost/internal/docstore"
)

// HeadOfficeShopID is the reserved pseudo-shop that receives head-office
// level expense postings (shipment overheads).
const HeadOfficeShopID = "HO"

// Shop is the unit of financial partitioning. Shops are never deleted, only
// deactivated.
type Shop struct {
	ID       string
	Name     string
	Location string
	IsActive bool
}

// Product carries the head-office standard cost used for COGS system-wide
// and the minimum price shops are expected to sell at.
type Product struct {
	ID           string
	Name         string
	Category     string
	HOCost       float64
	MinSalePrice float64
}

// Customer belongs to exactly one shop.
type Customer struct {
	ID        string
	Name      string
	ShopID    string
	Phone     string
	Reference string
}

// UserRole selects the screen set a user operates.
type UserRole string

const (
	RoleHeadOffice   UserRole = "HEAD_OFFICE"
	RoleShopOperator UserRole = "SHOP_OPERATOR"
)

// User is reference data only; authentication is handled outside this
// service.
type User struct {
	ID     string
	Name   string
	Role   UserRole
	ShopID string
}

// ClearingAgent is a counterparty for customs clearing overheads.
type ClearingAgent struct {
	ID      string
	Name    string
	Contact string
}

// FreightForwarder is a counterparty for freight overheads.
type FreightForwarder struct {
	ID      string
	Name    string
	Contact string
}

// CustomExpenseType categorises ad hoc shipment overheads.
type CustomExpenseType struct {
	ID          string
	Name        string
	Description string
}

// ExpenseAccount categorises shop operating expenses.
type ExpenseAccount struct {
	ID          string
	Name        string
	Description string
}

// Currency is a conversion rate against the USD base.
type Currency struct {
	ID   string
	Name string
	Code string
	Rate float64
}

func shopFromDocument(doc docstore.Document) Shop {
	return Shop{
		ID:       doc.ID,
		Name:     docstore.Str(doc.Data, "name"),
		Location: docstore.Str(doc.Data, "location"),
		IsActive: docstore.Bool(doc.Data, "isActive"),
	}
}

func productFromDocument(doc docstore.Document) Product {
	return Product{
		ID:           doc.ID,
		Name:         docstore.Str(doc.Data, "name"),
		Category:     docstore.Str(doc.Data, "category"),
		HOCost:       docstore.Num(doc.Data, "hoCost"),
		MinSalePrice: docstore.Num(doc.Data, "minSalePrice"),
	}
}

func customerFromDocument(doc docstore.Document) Customer {
	return Customer{
		ID:        doc.ID,
		Name:      docstore.Str(doc.Data, "name"),
		ShopID:    docstore.Str(doc.Data, "shopId"),
		Phone:     docstore.Str(doc.Data, "phone"),
		Reference: docstore.Str(doc.Data, "reference"),
	}
}

func userFromDocument(doc docstore.Document) User {
	return User{
		ID:     doc.ID,
		Name:   docstore.Str(doc.Data, "name"),
		Role:   UserRole(docstore.Str(doc.Data, "role")),
		ShopID: docstore.Str(doc.Data, "shopId"),
	}
}

func clearingAgentFromDocument(doc docstore.Document) ClearingAgent {
	return ClearingAgent{
		ID:      doc.ID,
		Name:    docstore.Str(doc.Data, "name"),
		Contact: docstore.Str(doc.Data, "contact"),
	}
}

func freightForwarderFromDocument(doc docstore.Document) FreightForwarder {
	return FreightForwarder{
		ID:      doc.ID,
		Name:    docstore.Str(doc.Data, "name"),
		Contact: docstore.Str(doc.Data, "contact"),
	}
}

func customExpenseTypeFromDocument(doc docstore.Document) CustomExpenseType {
	return CustomExpenseType{
		ID:          doc.ID,
		Name:        docstore.Str(doc.Data, "name"),
		Description: docstore.Str(doc.Data, "description"),
	}
}

func expenseAccountFromDocument(doc docstore.Document) ExpenseAccount {
	return ExpenseAccount{
		ID:          doc.ID,
		Name:        docstore.Str(doc.Data, "name"),
		Description: docstore.Str(doc.Data, "description"),
	}
}

func currencyFromDocument(doc docstore.Document) Currency {
	return Currency{
		ID:   doc.ID,
		Name: docstore.Str(doc.Data, "name"),
		Code: docstore.Str(doc.Data, "code"),
		Rate: docstore.Num(doc.Data, "rate"),
	}
}
