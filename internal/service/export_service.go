package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/export"
)

type exportBookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type exportStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// ExportService renders booking ledgers for centers as CSV or PDF files.
type ExportService struct {
	bookings exportBookingRepository
	storage  exportStorage
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// ExportResult carries a rendered export and its suggested filename.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewExportService constructs an ExportService. Storage is optional; when
// set, each export is also archived on disk.
func NewExportService(bookings exportBookingRepository, storage exportStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		bookings: bookings,
		storage:  storage,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// CenterBookings exports a center's booking ledger in the requested
// format ("csv" or "pdf"), optionally bounded by a date range.
func (s *ExportService) CenterBookings(ctx context.Context, centerID, format string, from, to *time.Time) (*ExportResult, error) {
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	bookings, err := s.collect(ctx, centerID, from, to)
	if err != nil {
		return nil, err
	}

	dataset := bookingDataset(bookings)
	stamp := time.Now().UTC().Format("20060102-150405")

	var result ExportResult
	switch format {
	case "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		result = ExportResult{
			Filename:    fmt.Sprintf("bookings-%s-%s.csv", centerID, stamp),
			ContentType: "text/csv",
			Data:        data,
		}
	case "pdf":
		data, err := s.pdf.Render(dataset, "Booking Ledger")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		result = ExportResult{
			Filename:    fmt.Sprintf("bookings-%s-%s.pdf", centerID, stamp),
			ContentType: "application/pdf",
			Data:        data,
		}
	}

	if s.storage != nil {
		if _, err := s.storage.SaveStream(result.Filename, bytes.NewReader(result.Data)); err != nil {
			s.logger.Warn("failed to archive export", zap.String("filename", result.Filename), zap.Error(err))
		}
	}
	return &result, nil
}

// collect pages through the ledger; exports are not paginated.
func (s *ExportService) collect(ctx context.Context, centerID string, from, to *time.Time) ([]models.Booking, error) {
	var all []models.Booking
	filter := models.BookingFilter{
		CenterID:  centerID,
		DateFrom:  from,
		DateTo:    to,
		Page:      1,
		PageSize:  100,
		SortBy:    "booking_date",
		SortOrder: "ASC",
	}
	for {
		page, total, err := s.bookings.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for export")
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			return all, nil
		}
		filter.Page++
	}
}

func bookingDataset(bookings []models.Booking) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"ID", "Date", "Start", "End", "Status", "Parent", "Teacher", "Service", "Amount"},
		Rows:    make([]map[string]string, 0, len(bookings)),
	}
	for _, b := range bookings {
		teacher := ""
		if b.TeacherProfileID != nil {
			teacher = *b.TeacherProfileID
		}
		service := ""
		if b.ServiceID != nil {
			service = *b.ServiceID
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":      b.ID,
			"Date":    b.BookingDate.Format("2006-01-02"),
			"Start":   b.StartTime,
			"End":     b.EndTime,
			"Status":  string(b.Status),
			"Parent":  b.ParentID,
			"Teacher": teacher,
			"Service": service,
			"Amount":  strconv.FormatFloat(b.TotalAmount, 'f', 2, 64),
		})
	}
	return dataset
}
