package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/pkg/timeslot"
)

// BookingRepository provides persistence for the booking ledger.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, parent_id, child_id, teacher_profile_id, center_id, service_id, status, booking_date, start_time, end_time, total_amount, notes, created_at, updated_at`

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ParentID != "" {
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", len(args)+1))
		args = append(args, filter.ParentID)
	}
	if filter.TeacherProfileID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_profile_id = $%d", len(args)+1))
		args = append(args, filter.TeacherProfileID)
	}
	if filter.CenterID != "" {
		conditions = append(conditions, fmt.Sprintf("center_id = $%d", len(args)+1))
		args = append(args, filter.CenterID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("booking_date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("booking_date <= $%d", len(args)+1))
		args = append(args, filter.DateTo.Format("2006-01-02"))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"booking_date": true,
		"start_time":   true,
		"status":       true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "booking_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// ListOccupying returns a teacher's bookings on a date whose status holds
// the slot.
func (r *BookingRepository) ListOccupying(ctx context.Context, teacherProfileID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM bookings WHERE teacher_profile_id = ? AND booking_date = ? AND status IN (?) ORDER BY start_time ASC`, bookingColumns), teacherProfileID, date.Format("2006-01-02"), statuses)
	if err != nil {
		return nil, fmt.Errorf("build occupying bookings query: %w", err)
	}
	query = r.db.Rebind(query)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list occupying bookings: %w", err)
	}
	return bookings, nil
}

// ListOccupyingForTeachers returns occupying bookings on a date for a set
// of teachers.
func (r *BookingRepository) ListOccupyingForTeachers(ctx context.Context, teacherProfileIDs []string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	if len(teacherProfileIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM bookings WHERE teacher_profile_id IN (?) AND booking_date = ? AND status IN (?) ORDER BY start_time ASC`, bookingColumns), teacherProfileIDs, date.Format("2006-01-02"), statuses)
	if err != nil {
		return nil, fmt.Errorf("build teacher occupancy query: %w", err)
	}
	query = r.db.Rebind(query)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher occupancy: %w", err)
	}
	return bookings, nil
}

// Create inserts a booking row without an occupancy check. Used for
// center bookings awaiting assignment, which have no teacher to conflict
// with yet.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	prepareBookingRow(booking)
	const query = `INSERT INTO bookings (id, parent_id, child_id, teacher_profile_id, center_id, service_id, status, booking_date, start_time, end_time, total_amount, notes, created_at, updated_at) VALUES (:id, :parent_id, :child_id, :teacher_profile_id, :center_id, :service_id, :status, :booking_date, :start_time, :end_time, :total_amount, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// CreateIfFree inserts a booking only when no occupying booking overlaps
// the requested range. The conflict check and the insert run in one
// transaction serialized per teacher and date by a transaction-scoped
// advisory lock; FOR UPDATE alone cannot stop two first bookings on a
// date with no existing rows to lock.
func (r *BookingRepository) CreateIfFree(ctx context.Context, booking *models.Booking, occupying []models.BookingStatus) error {
	if booking.TeacherProfileID == nil {
		return fmt.Errorf("create booking: teacher required for occupancy check")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockKey := fmt.Sprintf("%s:%s", *booking.TeacherProfileID, booking.BookingDate.Format("2006-01-02"))
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		err = fmt.Errorf("acquire booking slot lock: %w", err)
		return err
	}

	query, args, inErr := sqlx.In(`SELECT start_time, end_time FROM bookings WHERE teacher_profile_id = ? AND booking_date = ? AND status IN (?) FOR UPDATE`, *booking.TeacherProfileID, booking.BookingDate.Format("2006-01-02"), occupying)
	if inErr != nil {
		err = fmt.Errorf("build occupancy lock query: %w", inErr)
		return err
	}
	query = tx.Rebind(query)

	var existing []struct {
		StartTime string `db:"start_time"`
		EndTime   string `db:"end_time"`
	}
	if err = tx.SelectContext(ctx, &existing, query, args...); err != nil {
		err = fmt.Errorf("lock occupying bookings: %w", err)
		return err
	}

	for _, row := range existing {
		if timeslot.Overlaps(booking.StartTime, booking.EndTime, row.StartTime, row.EndTime) {
			err = &models.SlotConflictError{
				TeacherProfileID: *booking.TeacherProfileID,
				BookingDate:      booking.BookingDate,
				StartTime:        booking.StartTime,
				EndTime:          booking.EndTime,
			}
			return err
		}
	}

	prepareBookingRow(booking)
	const insert = `INSERT INTO bookings (id, parent_id, child_id, teacher_profile_id, center_id, service_id, status, booking_date, start_time, end_time, total_amount, notes, created_at, updated_at) VALUES (:id, :parent_id, :child_id, :teacher_profile_id, :center_id, :service_id, :status, :booking_date, :start_time, :end_time, :total_amount, :notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, booking); err != nil {
		err = fmt.Errorf("insert booking: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit booking: %w", err)
		return err
	}
	return nil
}

// UpdateStatus changes a booking's status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	const query = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// AssignTeacher attaches a teacher to a center booking and moves it out of
// awaiting_assignment.
func (r *BookingRepository) AssignTeacher(ctx context.Context, id, teacherProfileID string, status models.BookingStatus) error {
	const query = `UPDATE bookings SET teacher_profile_id = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, teacherProfileID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign teacher to booking: %w", err)
	}
	return nil
}

func prepareBookingRow(booking *models.Booking) {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
}
