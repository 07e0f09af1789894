package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type exportLedgerStub struct {
	bookings []models.Booking
	err      error
}

func (s *exportLedgerStub) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.bookings, len(s.bookings), nil
}

type exportStorageStub struct {
	saved map[string][]byte
}

func (s *exportStorageStub) SaveStream(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[filename] = data
	return filename, nil
}

func exportBookings() []models.Booking {
	teacher := "tp-1"
	return []models.Booking{
		{
			ID:               "bk-1",
			ParentID:         "parent-1",
			TeacherProfileID: &teacher,
			Status:           models.BookingCompleted,
			BookingDate:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
			StartTime:        "10:00",
			EndTime:          "11:00",
			TotalAmount:      350,
		},
		{
			ID:          "bk-2",
			ParentID:    "parent-2",
			Status:      models.BookingCancelled,
			BookingDate: time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC),
			StartTime:   "09:00",
			EndTime:     "10:00",
			TotalAmount: 0,
		},
	}
}

func TestExportServiceCenterBookingsCSV(t *testing.T) {
	storage := &exportStorageStub{}
	service := NewExportService(&exportLedgerStub{bookings: exportBookings()}, storage, nil)

	result, err := service.CenterBookings(context.Background(), "c-1", "csv", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	content := string(result.Data)
	assert.Contains(t, content, "bk-1")
	assert.Contains(t, content, "2026-09-07")
	assert.Contains(t, content, "350.00")
	assert.Contains(t, content, "cancelled")

	assert.Len(t, storage.saved, 1)
	assert.Equal(t, result.Data, storage.saved[result.Filename], "archived copy matches the rendered export")
}

func TestExportServiceCenterBookingsPDF(t *testing.T) {
	service := NewExportService(&exportLedgerStub{bookings: exportBookings()}, nil, nil)

	result, err := service.CenterBookings(context.Background(), "c-1", "pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.NotEmpty(t, result.Data)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	service := NewExportService(&exportLedgerStub{}, nil, nil)

	_, err := service.CenterBookings(context.Background(), "c-1", "xlsx", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
