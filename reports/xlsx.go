/*
xlsx.go - Spreadsheet export of a branch report

PURPOSE:
  Writes a BranchReport as an .xlsx workbook: a Summary sheet with the
  period totals and the by-method / by-component tables, and a Bills sheet
  listing every bill in the period. Amounts are written as floats so the
  spreadsheet can sum them; the stored decimals remain the source of truth.
*/
package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/haven/rental-engine/billing"
)

const (
	summarySheet = "Summary"
	billsSheet   = "Bills"
)

// WriteXLSX writes the report as an Excel workbook.
func WriteXLSX(w io.Writer, report *BranchReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, report); err != nil {
		return err
	}
	if err := writeBillsSheet(f, report); err != nil {
		return err
	}

	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, report *BranchReport) error {
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	period := "all time"
	if !report.From.IsZero() || !report.To.IsZero() {
		period = report.From.String() + " to " + report.To.String()
	}

	rows := [][]any{
		{"Branch", report.Branch.Name},
		{"Period", period},
		{"Bills", report.BillCount},
		{"Payments", report.PaymentCount},
		{},
		{"Total billed", moneyCell(report.TotalBilled)},
		{"Total collected", moneyCell(report.TotalCollected)},
		{"Outstanding", moneyCell(report.TotalOutstanding)},
		{"Penalties charged", moneyCell(report.PenaltiesCharged)},
		{"Deposits forfeited", moneyCell(report.DepositsForfeited)},
		{"Refunds issued", moneyCell(report.RefundsIssued)},
		{},
		{"Collected by method"},
	}
	for _, m := range report.CollectedByMethod {
		rows = append(rows, []any{string(m.Method), moneyCell(m.Amount)})
	}
	rows = append(rows, []any{}, []any{"Collected by component"})
	for _, c := range report.CollectedByComponent {
		rows = append(rows, []any{string(c.Component), moneyCell(c.Amount)})
	}

	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeBillsSheet(f *excelize.File, report *BranchReport) error {
	if _, err := f.NewSheet(billsSheet); err != nil {
		return err
	}

	headers := []string{
		"Bill ID", "Tenant ID", "Cycle", "Period start", "Period end", "Due date",
		"Rent", "Electricity", "Water", "Extra fee", "Penalty",
		"Total due", "Paid", "Status", "Final",
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(billsSheet, cell, header); err != nil {
			return err
		}
	}

	for i, b := range report.Bills {
		values := []any{
			b.ID, b.TenantID, b.CycleNumber,
			b.PeriodStart.String(), b.PeriodEnd.String(), b.DueDate.String(),
			moneyCell(b.MonthlyRentAmount), moneyCell(b.ElectricityAmount),
			moneyCell(b.WaterAmount), moneyCell(b.ExtraFee), moneyCell(b.PenaltyAmount),
			moneyCell(b.TotalAmountDue), moneyCell(b.AmountPaid),
			string(b.Status), b.IsFinalBill,
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(billsSheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// moneyCell converts an amount to a numeric cell value so the sheet can
// aggregate it. Exact decimals live in the database, not here.
func moneyCell(m billing.Money) float64 {
	return m.Value.InexactFloat64()
}
