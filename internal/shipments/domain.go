// Package shipments models the two-phase stock movement from head office to
// a shop: export creates a pending shipment and books the overheads, receipt
// turns the shipment into per-unit landed inventory cost.
package shipments

import (
	"time"

	"github.com/tradepost-hq/tradepost/internal/docstore"
)

// Status is the shipment state. The only transition is PENDING to RECEIVED,
// exactly once.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusReceived Status = "RECEIVED"
)

// Item is one product line on a shipment. ReceivedQuantity stays nil until
// the shop receives the shipment.
type Item struct {
	ProductID        string
	ExpectedQuantity float64
	ReceivedQuantity *float64
	LandedCost       float64
}

// Shipment is a stock movement with its head-office overhead totals. The
// overhead fields are fixed at export time and never recomputed.
type Shipment struct {
	ID                string
	ShopID            string
	Date              time.Time
	Status            Status
	Items             []Item
	FreightCost       float64
	ClearingCost      float64
	CustomExpenseCost float64
	ExpectedDuty      float64
}

// TotalOverheads sums the shipment-level overhead figures.
func (s Shipment) TotalOverheads() float64 {
	return s.FreightCost + s.ClearingCost + s.CustomExpenseCost + s.ExpectedDuty
}

// FromDocument decodes a shipment document.
func FromDocument(doc docstore.Document) Shipment {
	s := Shipment{
		ID:                doc.ID,
		ShopID:            docstore.Str(doc.Data, "shopId"),
		Date:              docstore.Time(doc.Data, "date"),
		Status:            Status(docstore.Str(doc.Data, "status")),
		FreightCost:       docstore.Num(doc.Data, "freightCost"),
		ClearingCost:      docstore.Num(doc.Data, "clearingCost"),
		CustomExpenseCost: docstore.Num(doc.Data, "customExpenseCost"),
		ExpectedDuty:      docstore.Num(doc.Data, "expectedDuty"),
	}
	for _, raw := range docstore.Maps(doc.Data, "items") {
		item := Item{
			ProductID:        docstore.Str(raw, "productId"),
			ExpectedQuantity: docstore.Num(raw, "expectedQuantity"),
			LandedCost:       docstore.Num(raw, "landedCost"),
		}
		if qty, ok := docstore.NumOK(raw, "receivedQuantity"); ok {
			item.ReceivedQuantity = &qty
		}
		s.Items = append(s.Items, item)
	}
	return s
}

// Fields encodes the shipment for persistence.
func (s Shipment) Fields() map[string]any {
	items := make([]map[string]any, 0, len(s.Items))
	for _, item := range s.Items {
		raw := map[string]any{
			"productId":        item.ProductID,
			"expectedQuantity": item.ExpectedQuantity,
			"landedCost":       item.LandedCost,
		}
		if item.ReceivedQuantity != nil {
			raw["receivedQuantity"] = *item.ReceivedQuantity
		}
		items = append(items, raw)
	}
	return map[string]any{
		"shopId":            s.ShopID,
		"date":              s.Date,
		"status":            string(s.Status),
		"items":             items,
		"freightCost":       s.FreightCost,
		"clearingCost":      s.ClearingCost,
		"customExpenseCost": s.CustomExpenseCost,
		"expectedDuty":      s.ExpectedDuty,
	}
}

// Decode folds a collection snapshot into shipments.
func Decode(docs []docstore.Document) []Shipment {
	out := make([]Shipment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}
