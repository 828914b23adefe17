// Package reports derives every financial view from the transaction log.
// All functions here are pure, stateless folds over a ledger snapshot;
// nothing is persisted and nothing is cached, so a derived view can never
// go stale.
package reports

import (
	"sort"
	"time"

	"github.com/tradepost-hq/tradepost/internal/ledger"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
)

// StockLevel derives on-hand stock for a shop and product: imported units
// minus sold units. The result is deliberately not floored at zero; a
// negative level signals an oversold or inconsistent ledger and must be
// surfaced as-is.
func StockLevel(txs []ledger.Transaction, shopID, productID string) float64 {
	var level float64
	for _, t := range txs {
		if t.ShopID != shopID || t.ProductID != productID {
			continue
		}
		switch {
		case t.Type == ledger.TypeImport:
			level += t.Quantity
		case t.Type.IsSale():
			level -= t.Quantity
		}
	}
	return level
}

// StockLine is one product's derived inventory position.
type StockLine struct {
	Product  masterdata.Product
	Imported float64
	Sold     float64
	OnHand   float64
}

// StockReport derives the full inventory position of a shop across the
// catalog.
func StockReport(txs []ledger.Transaction, shopID string, products []masterdata.Product) []StockLine {
	imported := make(map[string]float64)
	sold := make(map[string]float64)
	for _, t := range txs {
		if t.ShopID != shopID {
			continue
		}
		switch {
		case t.Type == ledger.TypeImport:
			imported[t.ProductID] += t.Quantity
		case t.Type.IsSale():
			sold[t.ProductID] += t.Quantity
		}
	}
	out := make([]StockLine, 0, len(products))
	for _, p := range products {
		out = append(out, StockLine{
			Product:  p,
			Imported: imported[p.ID],
			Sold:     sold[p.ID],
			OnHand:   imported[p.ID] - sold[p.ID],
		})
	}
	return out
}

// IncomeStatement aggregates a shop's profitability. COGS is measured
// against the catalog's head-office standard cost, not the shop's actual
// landed import cost.
type IncomeStatement struct {
	Revenue     float64
	COGS        float64
	GrossProfit float64
	Expenses    float64
	NetProfit   float64
}

// DeriveIncomeStatement folds a shop's ledger rows into an income statement.
// Sale rows for products missing from the catalog contribute revenue but no
// COGS, mirroring the catalog-lookup-per-row rule.
func DeriveIncomeStatement(txs []ledger.Transaction, shopID string, catalog map[string]masterdata.Product) IncomeStatement {
	var stmt IncomeStatement
	for _, t := range txs {
		if t.ShopID != shopID {
			continue
		}
		switch {
		case t.Type.IsSale():
			stmt.Revenue += t.Amount * t.Quantity
			if p, ok := catalog[t.ProductID]; ok {
				stmt.COGS += p.HOCost * t.Quantity
			}
		case t.Type == ledger.TypeExpense:
			stmt.Expenses += t.Amount
		}
	}
	stmt.GrossProfit = stmt.Revenue - stmt.COGS
	stmt.NetProfit = stmt.GrossProfit - stmt.Expenses
	return stmt
}

// EntrySide tags a customer-ledger entry as a debit (invoice) or credit
// (receipt).
type EntrySide string

const (
	Debit  EntrySide = "DEBIT"
	Credit EntrySide = "CREDIT"
)

// LedgerEntry is one line of a customer statement with its running balance.
type LedgerEntry struct {
	Date        time.Time
	Description string
	Side        EntrySide
	Amount      float64
	Balance     float64
	InvoiceID   string
}

// CustomerLedger is a customer's statement: dated entries in ascending
// order and the final running balance.
type CustomerLedger struct {
	Entries []LedgerEntry
	Balance float64
}

// DeriveCustomerLedger groups a customer's sale rows by invoice into one
// debit each, turns every receipt row into one credit, sorts ascending by
// date (same-date entries keep their append order) and accumulates the
// running balance. A sale row without an invoice id forms its own singleton
// invoice keyed by the row id, which cannot collide with a real invoice id.
func DeriveCustomerLedger(txs []ledger.Transaction, customerID string) CustomerLedger {
	type invoice struct {
		id    string
		date  time.Time
		total float64
	}
	var (
		invoices []*invoice
		byKey    = make(map[string]*invoice)
		entries  []LedgerEntry
	)
	for _, t := range txs {
		if t.CustomerID != customerID {
			continue
		}
		switch {
		case t.Type.IsSale():
			key := t.InvoiceID
			if key == "" {
				key = "sale-" + t.ID
			}
			inv, ok := byKey[key]
			if !ok {
				inv = &invoice{id: key, date: t.Date}
				byKey[key] = inv
				invoices = append(invoices, inv)
			}
			inv.total += t.Amount * t.Quantity
		case t.Type == ledger.TypeSalesReceipt:
			entries = append(entries, LedgerEntry{
				Date:        t.Date,
				Description: t.Description,
				Side:        Credit,
				Amount:      t.Amount,
				InvoiceID:   t.InvoiceID,
			})
		}
	}

	all := make([]LedgerEntry, 0, len(invoices)+len(entries))
	for _, inv := range invoices {
		all = append(all, LedgerEntry{
			Date:        inv.date,
			Description: "Invoice #" + inv.id,
			Side:        Debit,
			Amount:      inv.total,
			InvoiceID:   inv.id,
		})
	}
	all = append(all, entries...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})

	var balance float64
	for i := range all {
		if all[i].Side == Debit {
			balance += all[i].Amount
		} else {
			balance -= all[i].Amount
		}
		all[i].Balance = balance
	}
	return CustomerLedger{Entries: all, Balance: balance}
}

// ShopPerformance is one active shop's aggregate position.
type ShopPerformance struct {
	Shop        masterdata.Shop
	TotalSales  float64
	Expenses    float64
	GrossProfit float64
	NetProfit   float64
}

// DeriveShopPerformance aggregates every active shop. Deactivated shops are
// excluded from comparative analysis.
func DeriveShopPerformance(txs []ledger.Transaction, shops []masterdata.Shop, catalog map[string]masterdata.Product) []ShopPerformance {
	out := make([]ShopPerformance, 0, len(shops))
	for _, shop := range shops {
		if !shop.IsActive {
			continue
		}
		stmt := DeriveIncomeStatement(txs, shop.ID, catalog)
		out = append(out, ShopPerformance{
			Shop:        shop,
			TotalSales:  stmt.Revenue,
			Expenses:    stmt.Expenses,
			GrossProfit: stmt.GrossProfit,
			NetProfit:   stmt.NetProfit,
		})
	}
	return out
}

// ProductShopStats compares one product's economics across a shop: what it
// sells for on average versus what it cost to land there.
type ProductShopStats struct {
	Shop          masterdata.Shop
	UnitsSold     float64
	UnitsImported float64
	AvgSalePrice  float64
	AvgImportCost float64
}

// DeriveProductComparison computes per-active-shop average sale price and
// average import cost for one product.
func DeriveProductComparison(txs []ledger.Transaction, shops []masterdata.Shop, productID string) []ProductShopStats {
	out := make([]ProductShopStats, 0, len(shops))
	for _, shop := range shops {
		if !shop.IsActive {
			continue
		}
		var stats ProductShopStats
		stats.Shop = shop
		var saleValue, importValue float64
		for _, t := range txs {
			if t.ShopID != shop.ID || t.ProductID != productID {
				continue
			}
			switch {
			case t.Type.IsSale():
				stats.UnitsSold += t.Quantity
				saleValue += t.Amount * t.Quantity
			case t.Type == ledger.TypeImport:
				stats.UnitsImported += t.Quantity
				importValue += t.Amount * t.Quantity
			}
		}
		if stats.UnitsSold > 0 {
			stats.AvgSalePrice = saleValue / stats.UnitsSold
		}
		if stats.UnitsImported > 0 {
			stats.AvgImportCost = importValue / stats.UnitsImported
		}
		out = append(out, stats)
	}
	return out
}

// ProductSales is total sales value attributed to one product.
type ProductSales struct {
	Product masterdata.Product
	Value   float64
}

// Summary is the dashboard headline block.
type Summary struct {
	TotalSales     float64
	TotalExpenses  float64
	GrossProfit    float64
	NetProfit      float64
	ActiveShops    int
	SalesByProduct []ProductSales
}

// DeriveSummary folds the given rows (already scoped to a shop, or the
// whole network) into dashboard aggregates.
func DeriveSummary(txs []ledger.Transaction, shops []masterdata.Shop, products []masterdata.Product) Summary {
	catalog := make(map[string]masterdata.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	var s Summary
	salesValue := make(map[string]float64)
	for _, t := range txs {
		switch {
		case t.Type.IsSale():
			value := t.Amount * t.Quantity
			s.TotalSales += value
			salesValue[t.ProductID] += value
			if p, ok := catalog[t.ProductID]; ok {
				s.GrossProfit -= p.HOCost * t.Quantity
			}
		case t.Type == ledger.TypeExpense:
			s.TotalExpenses += t.Amount
		}
	}
	s.GrossProfit += s.TotalSales
	s.NetProfit = s.GrossProfit - s.TotalExpenses
	for _, shop := range shops {
		if shop.IsActive {
			s.ActiveShops++
		}
	}
	for _, p := range products {
		if value, ok := salesValue[p.ID]; ok {
			s.SalesByProduct = append(s.SalesByProduct, ProductSales{Product: p, Value: value})
		}
	}
	return s
}

// FilterShop narrows a snapshot to one shop's rows, preserving order.
func FilterShop(txs []ledger.Transaction, shopID string) []ledger.Transaction {
	var out []ledger.Transaction
	for _, t := range txs {
		if t.ShopID == shopID {
			out = append(out, t)
		}
	}
	return out
}
