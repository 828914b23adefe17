package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tradepost-hq/tradepost/internal/masterdata"
)

// money renders an amount with thousands separators for workbook cells.
var money = message.NewPrinter(language.English)

func formatMoney(v float64) string {
	return money.Sprintf("%.2f", v)
}

// shopName resolves a display name, accepting the head-office pseudo-shop.
func (s *Service) shopName(shopID string) (string, error) {
	if shopID == masterdata.HeadOfficeShopID {
		return "Head Office", nil
	}
	shop, ok := s.master.ShopByID(shopID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrShopNotFound, shopID)
	}
	return shop.Name, nil
}

// IncomeStatementWorkbook renders a shop's income statement as an xlsx
// workbook.
func (s *Service) IncomeStatementWorkbook(shopID string) (*excelize.File, error) {
	name, err := s.shopName(shopID)
	if err != nil {
		return nil, err
	}
	stmt := s.IncomeStatement(shopID)

	f := excelize.NewFile()
	sheet := "Income Statement"
	f.SetSheetName(f.GetSheetName(0), sheet)

	rows := [][]any{
		{fmt.Sprintf("Income Statement - %s", name), ""},
		{"", ""},
		{"Total Revenue (Sales)", formatMoney(stmt.Revenue)},
		{"Cost of Goods Sold (COGS)", formatMoney(stmt.COGS)},
		{"Gross Profit", formatMoney(stmt.GrossProfit)},
		{"Total Expenses", formatMoney(stmt.Expenses)},
		{"Net Profit", formatMoney(stmt.NetProfit)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("reports: cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("reports: write row: %w", err)
		}
	}
	return f, nil
}

// InventoryWorkbook renders a shop's derived stock levels as an xlsx
// workbook, one product per row.
func (s *Service) InventoryWorkbook(shopID string) (*excelize.File, error) {
	name, err := s.shopName(shopID)
	if err != nil {
		return nil, err
	}
	lines := s.StockReport(shopID)

	f := excelize.NewFile()
	sheet := "Inventory"
	f.SetSheetName(f.GetSheetName(0), sheet)

	header := []any{"Product", "Category", "Imported", "Sold", "On Hand"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("reports: write header: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: fmt.Sprintf("Inventory - %s", name)}); err != nil {
		return nil, fmt.Errorf("reports: doc props: %w", err)
	}
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("reports: cell name: %w", err)
		}
		row := []any{line.Product.Name, line.Product.Category, line.Imported, line.Sold, line.OnHand}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("reports: write row: %w", err)
		}
	}
	return f, nil
}
