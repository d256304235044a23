package core

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/edvin/budget/internal/model"
)

const ExportSheet = "Subscriptions"

var exportHeader = []any{
	"subscription_id", "name", "state", "abolished",
	"approved_from", "approved_to", "approved", "allocated", "total_cost", "remaining",
}

// ExportService renders subscription summaries as a spreadsheet.
type ExportService struct {
	subs *SubscriptionService
}

func NewExportService(subs *SubscriptionService) *ExportService {
	return &ExportService{subs: subs}
}

// WriteXLSX writes every subscription summary to w as an xlsx workbook.
func (s *ExportService) WriteXLSX(ctx context.Context, w io.Writer) error {
	summaries, err := s.subs.List(ctx)
	if err != nil {
		return err
	}
	return writeSummariesXLSX(w, summaries)
}

func writeSummariesXLSX(w io.Writer, summaries []model.SubscriptionSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, ExportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, sum := range summaries {
		row := []any{
			sum.SubscriptionID,
			sum.Name,
			string(sum.State),
			strconv.FormatBool(sum.Abolished),
			optionalDate(sum.ApprovedFrom),
			optionalDate(sum.ApprovedTo),
			sum.Approved.StringFixedBank(2),
			sum.Allocated.StringFixedBank(2),
			sum.TotalCost.StringFixedBank(2),
			sum.Remaining.StringFixedBank(2),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return isoDate(*t)
}
