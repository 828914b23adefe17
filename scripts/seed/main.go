// Command seed loads a small demo dataset into the configured document
// store: head-office reference data, two shops with customers, a received
// shipment and a handful of ledger events, so every report has something to
// show on a fresh install.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/tradepost-hq/tradepost/internal/app"
	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/docstore/mongodb"
	"github.com/tradepost-hq/tradepost/internal/docstore/postgres"
	"github.com/tradepost-hq/tradepost/internal/ledger"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
	"github.com/tradepost-hq/tradepost/internal/reports"
	"github.com/tradepost-hq/tradepost/internal/shipments"
)

type snapshotAdapter struct {
	store docstore.Store
}

func (s snapshotAdapter) Snapshot(collection string) []docstore.Document {
	docs, err := s.store.List(context.Background(), collection)
	if err != nil {
		log.Fatalf("list %s: %v", collection, err)
	}
	return docs
}

func main() {
	ctx := context.Background()
	logger := slog.Default()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var store docstore.Store
	switch cfg.StoreDriver {
	case app.DriverMongo:
		store, err = mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	case app.DriverPostgres:
		store, err = postgres.New(ctx, cfg.PGDSN, logger)
	default:
		log.Fatalf("seed requires STORE_DRIVER=postgres or mongo, got %q", cfg.StoreDriver)
	}
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	if docs, err := store.List(ctx, docstore.CollectionShops); err != nil {
		log.Fatalf("check shops: %v", err)
	} else if len(docs) > 0 {
		fmt.Println("store already seeded, nothing to do")
		os.Exit(0)
	}

	snaps := snapshotAdapter{store}
	master := masterdata.NewService(store, snaps)

	fmt.Println("→ Seeding master data...")
	lagosID, err := master.CreateShop(ctx, "Lagos Store", "Lagos")
	must(err)
	abujaID, err := master.CreateShop(ctx, "Abuja Store", "Abuja")
	must(err)

	widgetID, err := master.CreateProduct(ctx, masterdata.Product{
		Name: "Solar Lantern", Category: "Electronics", HOCost: 60, MinSalePrice: 80,
	})
	must(err)
	_, err = master.CreateProduct(ctx, masterdata.Product{
		Name: "Water Filter", Category: "Home", HOCost: 25, MinSalePrice: 35,
	})
	must(err)

	customerID, err := master.CreateCustomer(ctx, masterdata.Customer{
		Name: "Ada Obi", ShopID: lagosID, Phone: "+2348000000001",
	})
	must(err)
	_, err = master.CreateCustomer(ctx, masterdata.Customer{
		Name: "Bola Ade", ShopID: abujaID,
	})
	must(err)

	_, err = master.CreateUser(ctx, masterdata.User{Name: "HQ Admin", Role: masterdata.RoleHeadOffice})
	must(err)
	_, err = master.CreateUser(ctx, masterdata.User{
		Name: "Lagos Operator", Role: masterdata.RoleShopOperator, ShopID: lagosID,
	})
	must(err)

	ffID, err := master.CreateFreightForwarder(ctx, "Acme Freight", "ops@acmefreight.test")
	must(err)
	caID, err := master.CreateClearingAgent(ctx, "Swift Clearing", "")
	must(err)
	_, err = master.CreateCustomExpenseType(ctx, "Port Levy", "terminal handling charges")
	must(err)
	rentID, err := master.CreateExpenseAccount(ctx, "Rent", "shop premises rent")
	must(err)
	_, err = master.CreateCurrency(ctx, masterdata.Currency{Code: "NGN", Name: "Naira", Rate: 1500})
	must(err)

	fmt.Println("→ Seeding a received shipment...")
	shipSvc := shipments.NewService(store, snaps, master)
	shipmentID, err := shipSvc.CreateExport(ctx, shipments.ExportInput{
		ShopID: lagosID,
		Items: []shipments.ExportItem{
			{ProductID: widgetID, Quantity: 40, LandedCost: 60},
		},
		FreightForwarder: shipments.Overhead{CounterpartyID: ffID, Amount: 120},
		ClearingAgent:    shipments.Overhead{CounterpartyID: caID, Amount: 80},
	})
	must(err)
	_, err = shipSvc.Receive(ctx, shipmentID, []shipments.ReceivedItem{
		{ProductID: widgetID, Quantity: 40},
	})
	must(err)

	fmt.Println("→ Seeding ledger events...")
	reportSvc := reports.NewService(snaps, master)
	ledgerSvc := ledger.NewService(store, snaps, master, reportSvc)
	_, err = ledgerSvc.RecordSale(ctx, ledger.SaleInput{
		ShopID:     lagosID,
		CustomerID: customerID,
		Items:      []ledger.SaleItem{{ProductID: widgetID, Quantity: 5, UnitPrice: 95}},
		CashPaid:   200,
		Date:       time.Now().UTC(),
	})
	must(err)
	_, err = ledgerSvc.RecordExpense(ctx, ledger.ExpenseInput{
		ShopID:           lagosID,
		ExpenseAccountID: rentID,
		Description:      "May rent",
		Amount:           150,
		Date:             time.Now().UTC(),
	})
	must(err)

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
