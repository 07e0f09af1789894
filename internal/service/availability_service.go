package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/timeslot"
)

type availabilityWindowRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error)
	ListByTeacher(ctx context.Context, teacherProfileID string) ([]models.TeacherAvailability, error)
	ListByTeacherAndDay(ctx context.Context, teacherProfileID string, dayOfWeek int) ([]models.TeacherAvailability, error)
	ListByTeachersAndDay(ctx context.Context, teacherProfileIDs []string, dayOfWeek int) ([]models.TeacherAvailability, error)
	Create(ctx context.Context, window *models.TeacherAvailability) error
	Update(ctx context.Context, window *models.TeacherAvailability) error
	Delete(ctx context.Context, id string) error
}

type availabilityBookingRepository interface {
	ListOccupying(ctx context.Context, teacherProfileID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
	ListOccupyingForTeachers(ctx context.Context, teacherProfileIDs []string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
}

type availabilityAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.CenterService, error)
	ListActiveAssignments(ctx context.Context, serviceID string) ([]models.TeacherServiceAssignment, error)
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AvailabilityService derives bookable slots from weekly windows and the
// booking ledger.
type AvailabilityService struct {
	windows     availabilityWindowRepository
	bookings    availabilityBookingRepository
	assignments availabilityAssignmentRepository
	cache       availabilityCache
	validator   *validator.Validate
	logger      *zap.Logger
	cacheTTL    time.Duration
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(windows availabilityWindowRepository, bookings availabilityBookingRepository, assignments availabilityAssignmentRepository, cache availabilityCache, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AvailabilityService{
		windows:     windows,
		bookings:    bookings,
		assignments: assignments,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		cacheTTL:    cacheTTL,
	}
}

// ListWindows returns a teacher's declared weekly windows.
func (s *AvailabilityService) ListWindows(ctx context.Context, teacherProfileID string) ([]models.TeacherAvailability, error) {
	windows, err := s.windows.ListByTeacher(ctx, teacherProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	return windows, nil
}

// AddWindow declares a new weekly window for a teacher. Overlapping
// windows for the same weekday are rejected.
func (s *AvailabilityService) AddWindow(ctx context.Context, teacherProfileID string, req models.AvailabilityWindowRequest) (*models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	existing, err := s.windows.ListByTeacherAndDay(ctx, teacherProfileID, req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing windows")
	}
	for _, w := range existing {
		if timeslot.Overlaps(req.StartTime, req.EndTime, w.StartTime, w.EndTime) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "window overlaps an existing availability window")
		}
	}

	window := &models.TeacherAvailability{
		TeacherProfileID: teacherProfileID,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
	}
	if err := s.windows.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}
	s.invalidate(ctx)
	return window, nil
}

// UpdateWindow modifies a declared window. Ownership is enforced so a
// teacher cannot edit another teacher's schedule.
func (s *AvailabilityService) UpdateWindow(ctx context.Context, teacherProfileID, windowID string, req models.AvailabilityWindowRequest) (*models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	window, err := s.windows.FindByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.TeacherProfileID != teacherProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "window belongs to another teacher")
	}

	existing, err := s.windows.ListByTeacherAndDay(ctx, teacherProfileID, req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing windows")
	}
	for _, w := range existing {
		if w.ID == windowID {
			continue
		}
		if timeslot.Overlaps(req.StartTime, req.EndTime, w.StartTime, w.EndTime) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "window overlaps an existing availability window")
		}
	}

	window.DayOfWeek = req.DayOfWeek
	window.StartTime = req.StartTime
	window.EndTime = req.EndTime
	if err := s.windows.Update(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability window")
	}
	s.invalidate(ctx)
	return window, nil
}

// RemoveWindow deletes a declared window after an ownership check.
func (s *AvailabilityService) RemoveWindow(ctx context.Context, teacherProfileID, windowID string) error {
	window, err := s.windows.FindByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability window")
	}
	if window.TeacherProfileID != teacherProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "window belongs to another teacher")
	}
	if err := s.windows.Delete(ctx, windowID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability window")
	}
	s.invalidate(ctx)
	return nil
}

// TeacherSlots lists a teacher's windows for one date, each flagged booked
// when any occupying booking overlaps it. A window hit by a partial
// overlap is blocked as a whole; fragments are never offered.
func (s *AvailabilityService) TeacherSlots(ctx context.Context, teacherProfileID string, date time.Time) ([]models.Slot, error) {
	windows, err := s.windows.ListByTeacherAndDay(ctx, teacherProfileID, int(date.Weekday()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
	}
	if len(windows) == 0 {
		return []models.Slot{}, nil
	}

	occupying, err := s.bookings.ListOccupying(ctx, teacherProfileID, date, models.OccupyingStatuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	slots := make([]models.Slot, 0, len(windows))
	for _, w := range windows {
		slot := models.Slot{StartTime: w.StartTime, EndTime: w.EndTime}
		for _, b := range occupying {
			if timeslot.Overlaps(w.StartTime, w.EndTime, b.StartTime, b.EndTime) {
				slot.IsBooked = true
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// ServiceSlots merges the windows of every teacher assigned to a service
// on one date. Windows are grouped by their literal start and end pair;
// identical windows from different teachers collapse into one entry with
// total and available counts.
func (s *AvailabilityService) ServiceSlots(ctx context.Context, serviceID string, date time.Time) ([]models.ServiceSlot, error) {
	cacheKey := fmt.Sprintf("availability:service:%s:%s", serviceID, date.Format("2006-01-02"))
	if s.cache != nil {
		var cached []models.ServiceSlot
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("availability cache read failed", zap.Error(err))
		}
	}

	svc, err := s.assignments.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
	}
	if !svc.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "service is not active")
	}

	assignments, err := s.assignments.ListActiveAssignments(ctx, serviceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service assignments")
	}
	if len(assignments) == 0 {
		return []models.ServiceSlot{}, nil
	}

	teacherIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		teacherIDs = append(teacherIDs, a.TeacherProfileID)
	}

	windows, err := s.windows.ListByTeachersAndDay(ctx, teacherIDs, int(date.Weekday()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
	}
	occupying, err := s.bookings.ListOccupyingForTeachers(ctx, teacherIDs, date, models.OccupyingStatuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	bookingsByTeacher := make(map[string][]models.Booking)
	for _, b := range occupying {
		if b.TeacherProfileID == nil {
			continue
		}
		bookingsByTeacher[*b.TeacherProfileID] = append(bookingsByTeacher[*b.TeacherProfileID], b)
	}

	type slotKey struct {
		start string
		end   string
	}
	grouped := make(map[slotKey]*models.ServiceSlot)
	for _, w := range windows {
		key := slotKey{start: w.StartTime, end: w.EndTime}
		slot, ok := grouped[key]
		if !ok {
			slot = &models.ServiceSlot{StartTime: w.StartTime, EndTime: w.EndTime}
			grouped[key] = slot
		}
		slot.TotalCount++

		free := true
		for _, b := range bookingsByTeacher[w.TeacherProfileID] {
			if timeslot.Overlaps(w.StartTime, w.EndTime, b.StartTime, b.EndTime) {
				free = false
				break
			}
		}
		if free {
			slot.AvailableCount++
		}
	}

	slots := make([]models.ServiceSlot, 0, len(grouped))
	for _, slot := range grouped {
		slot.IsAvailable = slot.AvailableCount > 0
		slots = append(slots, *slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].EndTime < slots[j].EndTime
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, slots, s.cacheTTL); err != nil {
			s.logger.Warn("availability cache write failed", zap.Error(err))
		}
	}
	return slots, nil
}

// AvailableTeachers returns the teachers assigned to a service who can
// take the requested range: a declared window must cover it entirely and
// no occupying booking may overlap it.
func (s *AvailabilityService) AvailableTeachers(ctx context.Context, serviceID string, date time.Time, startTime, endTime string) ([]string, error) {
	if err := validateRange(startTime, endTime); err != nil {
		return nil, err
	}

	assignments, err := s.assignments.ListActiveAssignments(ctx, serviceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service assignments")
	}
	if len(assignments) == 0 {
		return nil, nil
	}

	teacherIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		teacherIDs = append(teacherIDs, a.TeacherProfileID)
	}

	windows, err := s.windows.ListByTeachersAndDay(ctx, teacherIDs, int(date.Weekday()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability windows")
	}
	occupying, err := s.bookings.ListOccupyingForTeachers(ctx, teacherIDs, date, models.OccupyingStatuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	covered := make(map[string]bool)
	for _, w := range windows {
		if timeslot.Covers(w.StartTime, w.EndTime, startTime, endTime) {
			covered[w.TeacherProfileID] = true
		}
	}
	for _, b := range occupying {
		if b.TeacherProfileID == nil {
			continue
		}
		if timeslot.Overlaps(startTime, endTime, b.StartTime, b.EndTime) {
			delete(covered, *b.TeacherProfileID)
		}
	}

	available := make([]string, 0, len(covered))
	for _, id := range teacherIDs {
		if covered[id] {
			available = append(available, id)
		}
	}
	return available, nil
}

// InvalidateCache drops derived availability entries. Called after any
// write that changes occupancy.
func (s *AvailabilityService) InvalidateCache(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *AvailabilityService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "availability:*"); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.Error(err))
	}
}

func validateRange(startTime, endTime string) error {
	if _, err := timeslot.Duration(startTime, endTime); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time range")
	}
	return nil
}
