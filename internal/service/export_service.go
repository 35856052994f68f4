package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tuition-center-api/internal/models"
	"github.com/noah-isme/tuition-center-api/internal/timetable"
	appErrors "github.com/noah-isme/tuition-center-api/pkg/errors"
	"github.com/noah-isme/tuition-center-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type masterGridSource interface {
	Master(ctx context.Context, codes []string) (*MasterTimetable, error)
}

type financeRecordSource interface {
	ListAll(ctx context.Context, filter models.FinanceFilter) ([]models.FinanceRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders timetable and finance downloads.
type ExportService struct {
	timetable masterGridSource
	finance   financeRecordSource
	csv       csvRenderer
	pdf       pdfRenderer
	title     string
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(timetable masterGridSource, finance financeRecordSource, title string, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if strings.TrimSpace(title) == "" {
		title = "Master Timetable"
	}
	return &ExportService{timetable: timetable, finance: finance, csv: csv, pdf: pdf, title: title, logger: logger, now: time.Now}
}

// Timetable renders the master grid for the selected subjects.
func (s *ExportService) Timetable(ctx context.Context, codes []string, format string) (*ExportFile, error) {
	format = normalizeFormat(format, FormatPDF)
	if format != FormatPDF && format != FormatCSV {
		return nil, appErrors.Validationf("unsupported export format %q", format)
	}
	view, err := s.timetable.Master(ctx, codes)
	if err != nil {
		return nil, err
	}
	dataset := FixedGridDataset(view.Grid)

	var payload []byte
	if format == FormatPDF {
		payload, err = s.pdf.Render(dataset, s.title)
	} else {
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, wrapInternal(err, "failed to render timetable")
	}
	s.logger.Info("timetable exported", zap.String("format", format), zap.Int("bytes", len(payload)))
	return &ExportFile{
		Filename:    s.buildFilename("timetable", strings.Join(codes, "-"), format),
		ContentType: contentType(format),
		Data:        payload,
	}, nil
}

// Finance renders finance records as CSV.
func (s *ExportService) Finance(ctx context.Context, filter models.FinanceFilter, format string) (*ExportFile, error) {
	format = normalizeFormat(format, FormatCSV)
	if format != FormatCSV {
		return nil, appErrors.Validationf("finance records can only be exported as csv")
	}
	records, err := s.finance.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(FinanceDataset(records))
	if err != nil {
		return nil, wrapInternal(err, "failed to render finance records")
	}
	return &ExportFile{
		Filename:    s.buildFilename("finance", filter.Month, format),
		ContentType: contentType(format),
		Data:        payload,
	}, nil
}

// FixedGridDataset lays a fixed grid out as one row per weekday and one
// column per window. Each entry in a cell is on its own line.
func FixedGridDataset(grid timetable.FixedGrid) export.Dataset {
	headers := []string{"Day"}
	for _, w := range grid.Windows {
		headers = append(headers, w.Label())
	}
	rows := make([][]string, 0, len(grid.Days))
	for _, day := range grid.Days {
		row := []string{day}
		for i := range grid.Windows {
			lines := make([]string, 0, len(grid.Cell(day, i)))
			for _, entry := range grid.Cell(day, i) {
				lines = append(lines, entryLine(entry))
			}
			row = append(row, strings.Join(lines, "\n"))
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// FinanceDataset flattens finance records.
func FinanceDataset(records []models.FinanceRecord) export.Dataset {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.RecordedOn.Format(dateLayout),
			r.Type,
			r.Category,
			strconv.FormatFloat(r.Amount, 'f', 2, 64),
			deref(r.StudentID),
			r.Description,
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Type", "Category", "Amount", "Student ID", "Description"},
		Rows:    rows,
	}
}

func entryLine(e timetable.Entry) string {
	if e.TeacherName == "" {
		return e.Abbreviation
	}
	return fmt.Sprintf("%s (%s)", e.Abbreviation, e.TeacherName)
}

func (s *ExportService) buildFilename(kind, qualifier, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", kind, sanitizeFilename(qualifier), timestamp, format)
}

func normalizeFormat(raw, fallback string) string {
	format := strings.ToLower(strings.TrimSpace(raw))
	if format == "" {
		return fallback
	}
	return format
}

func contentType(format string) string {
	if format == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
