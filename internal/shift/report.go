package shift

import (
	"bytes"
	"context"
	"fmt"

	"restoran-pos/internal/models"
	"restoran-pos/internal/money"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	salesSheet   = "Sales"
)

// ExportReport renders the shift and the sales it covers as an XLSX workbook.
func (s *Service) ExportReport(ctx context.Context, id uint) ([]byte, string, error) {
	sh, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	sales, err := s.Sales(ctx, sh)
	if err != nil {
		return nil, "", err
	}

	var staff models.User
	staffName := fmt.Sprintf("#%d", sh.StaffID)
	if err := s.db.WithContext(ctx).Select("name").First(&staff, sh.StaffID).Error; err == nil {
		staffName = staff.Name
	}

	data, err := buildWorkbook(sh, staffName, sales)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("shift-%d-%s.xlsx", sh.ID, sh.StartTime.Format("20060102"))
	return data, filename, nil
}

func buildWorkbook(sh *models.Shift, staffName string, sales []SaleRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	endTime := "-"
	if sh.EndTime != nil {
		endTime = sh.EndTime.Format("2006-01-02 15:04:05")
	}

	summary := [][]any{
		{"Shift", sh.ID},
		{"Staff", staffName},
		{"Status", string(sh.Status)},
		{"Start", sh.StartTime.Format("2006-01-02 15:04:05")},
		{"End", endTime},
		{"Starting cash", money.Format(sh.StartingCash)},
		{"Ending cash", money.Format(sh.EndingCash)},
		{"Orders", sh.TotalOrders},
		{"Total sales", money.Format(sh.TotalSales)},
		{"Total tips", money.Format(sh.TotalTips)},
		{"Cash sales", money.Format(sh.CashSales)},
		{"Card sales", money.Format(sh.CardSales)},
		{"Mobile sales", money.Format(sh.MobileSales)},
		{"Expected cash", money.Format(sh.ExpectedCash)},
		{"Cash difference", money.Format(sh.CashDifference)},
		{"Notes", sh.Notes},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(salesSheet); err != nil {
		return nil, err
	}
	header := []any{"Order", "Paid at", "Method", "Total", "Tip"}
	if err := f.SetSheetRow(salesSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, r := range sales {
		row := []any{
			r.OrderNumber,
			r.PaidAt.Format("2006-01-02 15:04:05"),
			string(r.Method),
			money.Format(r.TotalAmount),
			money.Format(r.TipAmount),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(salesSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
