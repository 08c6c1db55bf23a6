package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/models"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type CategoryBreakdown struct {
	Category         string          `json:"category"`
	Type             string          `json:"type"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
}

// GetCategoryBreakdown groups the period's transactions by category and type,
// largest totals first.
func GetCategoryBreakdown(ctx context.Context, fromDate time.Time, toDate time.Time) ([]*CategoryBreakdown, error) {
	db := config.GetDB()

	var results []*CategoryBreakdown
	query := db.WithContext(ctx).Raw(`
			SELECT
				category,
				type,
				SUM(amount) AS total_amount,
				COUNT(id) AS transaction_count
			FROM transactions
			WHERE
				transaction_date >= ?
				AND transaction_date <= ?
			GROUP BY
				category,
				type
			ORDER BY
				total_amount DESC`,
		utils.StartOfDay(fromDate), utils.EndOfDay(toDate))
	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ExportTransactionsExcel writes an xlsx workbook for the period: one sheet of
// raw transactions, one sheet of the category breakdown.
func ExportTransactionsExcel(ctx context.Context, w io.Writer, fromDate time.Time, toDate time.Time) error {
	transactions, err := models.GetTransactionsInRange(ctx, utils.StartOfDay(fromDate), utils.EndOfDay(toDate))
	if err != nil {
		return err
	}
	breakdown, err := GetCategoryBreakdown(ctx, fromDate, toDate)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := "Transactions"
	f.SetSheetName("Sheet1", sheet)

	// Add headers
	f.SetCellValue(sheet, "A1", "Date")
	f.SetCellValue(sheet, "B1", "Type")
	f.SetCellValue(sheet, "C1", "Category")
	f.SetCellValue(sheet, "D1", "Amount")
	f.SetCellValue(sheet, "E1", "Description")
	f.SetCellValue(sheet, "F1", "Reference")

	// Add data
	for i, txn := range transactions {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheet, "A"+row, txn.TransactionDate.Format("2006-01-02"))
		f.SetCellValue(sheet, "B"+row, string(txn.Type))
		f.SetCellValue(sheet, "C"+row, txn.Category)
		f.SetCellValue(sheet, "D"+row, txn.Amount.StringFixed(2))
		f.SetCellValue(sheet, "E"+row, txn.Description)
		f.SetCellValue(sheet, "F"+row, utils.DereferencePtr(txn.ReferenceId, ""))
	}

	summarySheet := "By Category"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	f.SetCellValue(summarySheet, "A1", "Category")
	f.SetCellValue(summarySheet, "B1", "Type")
	f.SetCellValue(summarySheet, "C1", "Total")
	f.SetCellValue(summarySheet, "D1", "Count")
	for i, b := range breakdown {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(summarySheet, "A"+row, b.Category)
		f.SetCellValue(summarySheet, "B"+row, b.Type)
		f.SetCellValue(summarySheet, "C"+row, b.TotalAmount.StringFixed(2))
		f.SetCellValue(summarySheet, "D"+row, b.TransactionCount)
	}

	return f.Write(w)
}
