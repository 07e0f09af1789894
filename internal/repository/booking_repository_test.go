package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
)

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func strPtr(s string) *string { return &s }

func TestBookingRepositoryCreateIfFree(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("tp-1:2026-09-07").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT start_time, end_time FROM bookings").
		WithArgs("tp-1", "2026-09-07", models.BookingPending, models.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "end_time"}).
			AddRow("09:00", "10:00"))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		ParentID:         "p-1",
		TeacherProfileID: strPtr("tp-1"),
		Status:           models.BookingPending,
		BookingDate:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartTime:        "10:00",
		EndTime:          "11:00",
		TotalAmount:      350,
	}
	err := repo.CreateIfFree(context.Background(), booking, models.DirectOccupyingStatuses)
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateIfFreeConflict(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT start_time, end_time FROM bookings").
		WithArgs("tp-1", "2026-09-07", models.BookingPending, models.BookingConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "end_time"}).
			AddRow("09:30", "10:30"))
	mock.ExpectRollback()

	booking := &models.Booking{
		ParentID:         "p-1",
		TeacherProfileID: strPtr("tp-1"),
		Status:           models.BookingPending,
		BookingDate:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartTime:        "10:00",
		EndTime:          "11:00",
	}
	err := repo.CreateIfFree(context.Background(), booking, models.DirectOccupyingStatuses)
	var conflict *models.SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "tp-1", conflict.TeacherProfileID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateIfFreeAdjacentRanges(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	// A booking ending at 10:00 does not block one starting at 10:00.
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT start_time, end_time FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "end_time"}).
			AddRow("09:00", "10:00").
			AddRow("11:00", "12:00"))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		ParentID:         "p-1",
		TeacherProfileID: strPtr("tp-1"),
		Status:           models.BookingConfirmed,
		BookingDate:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartTime:        "10:00",
		EndTime:          "11:00",
	}
	require.NoError(t, repo.CreateIfFree(context.Background(), booking, models.OccupyingStatuses))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateIfFreeLocksEmptyDate(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	// With no existing rows the advisory lock is the only thing keeping
	// two concurrent first bookings from both inserting.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("tp-1:2026-09-07").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT start_time, end_time FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "end_time"}))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		ParentID:         "p-1",
		TeacherProfileID: strPtr("tp-1"),
		Status:           models.BookingPending,
		BookingDate:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartTime:        "10:00",
		EndTime:          "11:00",
	}
	require.NoError(t, repo.CreateIfFree(context.Background(), booking, models.DirectOccupyingStatuses))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateIfFreeRequiresTeacher(t *testing.T) {
	db, _, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	err := repo.CreateIfFree(context.Background(), &models.Booking{ParentID: "p-1"}, models.OccupyingStatuses)
	require.Error(t, err)
}

func TestBookingRepositoryListOccupying(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := sqlmock.NewRows([]string{"id", "parent_id", "child_id", "teacher_profile_id", "center_id", "service_id", "status", "booking_date", "start_time", "end_time", "total_amount", "notes", "created_at", "updated_at"}).
		AddRow("b1", "p-1", nil, "tp-1", nil, nil, "confirmed", time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), "09:00", "10:00", 350.0, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE teacher_profile_id = (.+) AND booking_date = (.+) AND status IN").
		WillReturnRows(rows)

	bookings, err := repo.ListOccupying(context.Background(), "tp-1", time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), models.OccupyingStatuses)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingConfirmed, bookings[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatusAndAssign(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("b1", models.BookingConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "b1", models.BookingConfirmed))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET teacher_profile_id = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("b2", "tp-1", models.BookingPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.AssignTeacher(context.Background(), "b2", "tp-1", models.BookingPending))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListFiltersByParent(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := sqlmock.NewRows([]string{"id", "parent_id", "child_id", "teacher_profile_id", "center_id", "service_id", "status", "booking_date", "start_time", "end_time", "total_amount", "notes", "created_at", "updated_at"}).
		AddRow("b1", "p-1", nil, "tp-1", nil, nil, "pending", time.Now(), "09:00", "10:00", 200.0, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE 1=1 AND parent_id = (.+) ORDER BY booking_date DESC, start_time ASC LIMIT 20 OFFSET 0").
		WithArgs("p-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE 1=1 AND parent_id = $1")).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	bookings, total, err := repo.List(context.Background(), models.BookingFilter{ParentID: "p-1"})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
