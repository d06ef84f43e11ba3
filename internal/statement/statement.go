// Package statement renders a contract statement as an Excel workbook.
package statement

import (
	"fmt"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	MilestonesSheet = "Milestones"
	PaymentsSheet   = "Payments"

	// ContentType is the MIME type of the workbook Build returns.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	milestoneHeaders = []string{"#", "Title", "Amount", "Currency", "Due", "Status", "Completed", "Paid"}
	paymentHeaders   = []string{"Milestone", "Amount", "Currency", "Status", "Requested", "Approved", "Paid", "Reference", "Rejection reason"}
)

// Build writes the milestones and payment requests of c to separate
// sheets, with the summary block below the milestone table.
func Build(c *domain.Contract, milestones []*domain.Milestone, requests []*domain.PaymentRequest, summary domain.ContractSummary) (*excelize.File, error) {
	if c == nil {
		return nil, domain.Errorf(domain.ErrValidation, "statement needs a contract")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), MilestonesSheet); err != nil {
		return nil, fmt.Errorf("naming milestones sheet: %w", err)
	}
	if _, err := f.NewSheet(PaymentsSheet); err != nil {
		return nil, fmt.Errorf("creating payments sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	if err := writeHeader(f, MilestonesSheet, milestoneHeaders, bold); err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(milestones))
	row := 2
	for _, m := range milestones {
		if m == nil {
			continue
		}
		titles[m.ID] = m.Title
		values := []any{
			m.OrderIndex + 1,
			m.Title,
			m.Amount.InexactFloat64(),
			c.Currency,
			formatDate(m.DueDate),
			string(m.Status),
			formatDate(m.CompletedDate),
			formatDate(m.PaidDate),
		}
		if err := writeRow(f, MilestonesSheet, row, values); err != nil {
			return nil, err
		}
		row++
	}

	row++
	block := [][]any{
		{"Contract", c.Title},
		{"Status", string(c.Status)},
		{"Total amount", c.TotalAmount.InexactFloat64()},
		{"Milestone total", summary.MilestoneTotal.InexactFloat64()},
		{"Paid amount", summary.PaidAmount.InexactFloat64()},
		{"Progress %", summary.ProgressPercentage.InexactFloat64()},
		{"Milestones completed", fmt.Sprintf("%d / %d", summary.CompletedMilestones, summary.TotalMilestones)},
		{"Amounts valid", summary.AmountValid},
	}
	for _, values := range block {
		if err := writeRow(f, MilestonesSheet, row, values); err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellStyle(MilestonesSheet, cell, cell, bold); err != nil {
			return nil, err
		}
		row++
	}

	if err := writeHeader(f, PaymentsSheet, paymentHeaders, bold); err != nil {
		return nil, err
	}
	for i, p := range requests {
		values := []any{
			titles[p.MilestoneID],
			p.Amount.InexactFloat64(),
			p.Currency,
			string(p.Status),
			p.RequestedAt.Format(domain.DateLayout),
			formatDate(p.ApprovedAt),
			formatDate(p.PaidAt),
			p.PaymentReference,
			p.RejectionReason,
		}
		if err := writeRow(f, PaymentsSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(MilestonesSheet, "B", "B", 32); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(PaymentsSheet, "A", "A", 32); err != nil {
		return nil, err
	}
	return f, nil
}

// FileName is the download name for the statement of c.
func FileName(c *domain.Contract, at time.Time) string {
	return fmt.Sprintf("contract_%s_%s.xlsx", shortID(c.ID), at.Format("20060102_150405"))
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
