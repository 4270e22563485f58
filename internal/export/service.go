package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

const (
	SheetName = "Extracted Tables"

	// dateLayout is dd.mm.yyyy.
	dateLayout = "02.01.2006"
)

// ErrNothingToExport is returned for an empty document list.
var ErrNothingToExport = errors.New("no documents to export")

var metaHeaders = []string{
	"Source File",
	"Billing Period Start",
	"Billing Period End",
	"Page",
	"Table Index",
	"Flavor",
	"Row Index",
}

// Service writes extracted tables into an XLSX workbook, one sheet row per table row.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportDocumentsXLSX returns the workbook bytes. Documents without tables but with an error
// get a single row carrying the error in the first data column.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, docs []*entity.Document) ([]byte, error) {
	start := time.Now()
	if len(docs) == 0 {
		return nil, common.NewAppError(common.CodeInput, "export", ErrNothingToExport)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	dataCols := widestRow(docs)
	base := len(metaHeaders)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	headers := append([]string(nil), metaHeaders...)
	for i := 0; i < dataCols; i++ {
		headers = append(headers, "Data Column "+strconv.Itoa(i+1))
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(SheetName, "A1", last, headerStyle)

	row := 2
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(SheetName, cell, v)
	}

	tableRows := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		if doc == nil {
			continue
		}
		if len(doc.Tables) == 0 {
			if doc.HasError() {
				write(1, doc.SourcePDF)
				write(base+1, "ERROR: "+doc.Error)
				row++
			} else {
				s.logger.Debug("export.skip", "file", doc.SourcePDF, "reason", "no tables")
			}
			continue
		}

		startDate, endDate := formatDate(doc.BillingPeriodStart), formatDate(doc.BillingPeriodEnd)
		for _, t := range doc.Tables {
			for i, cells := range t.Data {
				write(1, doc.SourcePDF)
				write(2, startDate)
				write(3, endDate)
				write(4, strconv.Itoa(t.Page))
				write(5, strconv.Itoa(t.Index))
				write(6, t.Flavor)
				write(7, strconv.Itoa(i))
				for j, v := range cells {
					write(base+1+j, v)
				}
				row++
				tableRows++
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 36) // file
	_ = f.SetColWidth(SheetName, "B", "C", 14) // dates
	_ = f.SetColWidth(SheetName, "D", "G", 10)
	if dataCols > 0 {
		first, _ := excelize.ColumnNumberToName(base + 1)
		lastCol, _ := excelize.ColumnNumberToName(base + dataCols)
		_ = f.SetColWidth(SheetName, first, lastCol, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(docs),
		"rows", tableRows,
		"data_columns", dataCols,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteXLSX exports docs into the file at path.
func (s *Service) WriteXLSX(ctx context.Context, docs []*entity.Document, path string) error {
	b, err := s.ExportDocumentsXLSX(ctx, docs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func widestRow(docs []*entity.Document) int {
	widest := 0
	for _, d := range docs {
		if d == nil {
			continue
		}
		for _, t := range d.Tables {
			for _, r := range t.Data {
				widest = max(widest, len(r))
			}
		}
	}
	return widest
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
