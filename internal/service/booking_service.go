package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/timeslot"
)

type bookingLedgerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	Create(ctx context.Context, booking *models.Booking) error
	CreateIfFree(ctx context.Context, booking *models.Booking, occupying []models.BookingStatus) error
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	AssignTeacher(ctx context.Context, id, teacherProfileID string, status models.BookingStatus) error
	ListOccupying(ctx context.Context, teacherProfileID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
}

type bookingTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeacherProfileDetail, error)
	HourlyRate(ctx context.Context, id string) (float64, error)
	Summaries(ctx context.Context, ids []string) ([]models.TeacherSummary, error)
}

type bookingServiceRepository interface {
	FindByID(ctx context.Context, id string) (*models.CenterService, error)
	ListActiveAssignments(ctx context.Context, serviceID string) ([]models.TeacherServiceAssignment, error)
}

type bookingAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type assignmentResolver interface {
	AvailableTeachers(ctx context.Context, serviceID string, date time.Time, startTime, endTime string) ([]string, error)
	InvalidateCache(ctx context.Context)
}

type bookingMetrics interface {
	RecordBookingCreated(kind string)
	RecordBookingConflict()
}

// BookingActor identifies who is acting on a booking. TeacherProfileID
// and CenterID are filled only for the matching roles.
type BookingActor struct {
	UserID           string
	Role             models.UserRole
	TeacherProfileID string
	CenterID         string
}

// BookingService owns the booking ledger: creation, assignment and the
// status lifecycle.
type BookingService struct {
	bookings   bookingLedgerRepository
	teachers   bookingTeacherRepository
	services   bookingServiceRepository
	audit      bookingAuditRepository
	resolver   assignmentResolver
	metrics    bookingMetrics
	validator  *validator.Validate
	logger     *zap.Logger
	autoAssign bool
}

// NewBookingService constructs a BookingService.
func NewBookingService(bookings bookingLedgerRepository, teachers bookingTeacherRepository, services bookingServiceRepository, audit bookingAuditRepository, resolver assignmentResolver, metrics bookingMetrics, validate *validator.Validate, logger *zap.Logger, autoAssign bool) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookingService{
		bookings:   bookings,
		teachers:   teachers,
		services:   services,
		audit:      audit,
		resolver:   resolver,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		autoAssign: autoAssign,
	}
}

// CreateDirect books a named teacher for a concrete date and time range.
// Only the existing ledger is consulted: a slot outside the teacher's
// declared windows is accepted, availability windows are advisory.
func (s *BookingService) CreateDirect(ctx context.Context, parentID string, req models.CreateDirectBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	date, err := time.Parse("2006-01-02", req.BookingDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date")
	}
	minutes, err := timeslot.Duration(req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time range")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherProfileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active || !teacher.Verified {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher is not accepting bookings")
	}

	// Snapshot the rate at creation time; later rate changes must not
	// reprice existing bookings.
	rate, err := s.teachers.HourlyRate(ctx, req.TeacherProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hourly rate")
	}

	booking := &models.Booking{
		ParentID:         parentID,
		ChildID:          req.ChildID,
		TeacherProfileID: &req.TeacherProfileID,
		Status:           models.BookingPending,
		BookingDate:      date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		TotalAmount:      rate * float64(minutes) / 60,
		Notes:            req.Notes,
	}

	if err := s.bookings.CreateIfFree(ctx, booking, models.DirectOccupyingStatuses); err != nil {
		var conflict *models.SlotConflictError
		if errors.As(err, &conflict) {
			if s.metrics != nil {
				s.metrics.RecordBookingConflict()
			}
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "requested slot is already booked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.afterCreate(ctx, booking, parentID, "direct")
	return booking, nil
}

// CreateForService books a center service. With auto-assignment enabled
// the first free assigned teacher is attached and the booking starts
// pending; otherwise it starts awaiting_assignment with no teacher.
func (s *BookingService) CreateForService(ctx context.Context, parentID string, req models.CreateServiceBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	date, err := time.Parse("2006-01-02", req.BookingDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking date")
	}
	if _, err := timeslot.Duration(req.StartTime, req.EndTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time range")
	}

	svc, err := s.services.FindByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
	}
	if !svc.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "service is not active")
	}
	if svc.CenterID != req.CenterID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "service does not belong to the center")
	}

	booking := &models.Booking{
		ParentID:    parentID,
		ChildID:     req.ChildID,
		CenterID:    &req.CenterID,
		ServiceID:   &req.ServiceID,
		Status:      models.BookingAwaitingAssignment,
		BookingDate: date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TotalAmount: svc.Price,
		Notes:       req.Notes,
	}

	if s.autoAssign && s.resolver != nil {
		candidates, err := s.resolver.AvailableTeachers(ctx, req.ServiceID, date, req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
		for _, teacherID := range candidates {
			id := teacherID
			booking.TeacherProfileID = &id
			booking.Status = models.BookingPending
			err := s.bookings.CreateIfFree(ctx, booking, models.DirectOccupyingStatuses)
			if err == nil {
				s.afterCreate(ctx, booking, parentID, "service")
				return booking, nil
			}
			var conflict *models.SlotConflictError
			if !errors.As(err, &conflict) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
			}
			// Lost the slot to a concurrent booking, try the next teacher.
		}
		booking.TeacherProfileID = nil
		booking.Status = models.BookingAwaitingAssignment
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.afterCreate(ctx, booking, parentID, "service")
	return booking, nil
}

// Get loads a booking, restricted to its participants and admins.
func (s *BookingService) Get(ctx context.Context, id string, actor BookingActor) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bookingParticipant(booking, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}
	return booking, nil
}

// List returns bookings matching the filter. Non-admin callers are
// scoped to their own ledger by the handler-provided filter.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, total, nil
}

// Confirm moves a pending booking to confirmed. Only the booked teacher,
// the booked center or an admin may confirm.
func (s *BookingService) Confirm(ctx context.Context, id string, actor BookingActor) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingConfirmed, actor, false)
}

// Complete marks a confirmed booking as held. Terminal.
func (s *BookingService) Complete(ctx context.Context, id string, actor BookingActor) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingCompleted, actor, false)
}

// Cancel cancels a booking from any non-terminal status and frees the
// slot. Parents may cancel their own bookings.
func (s *BookingService) Cancel(ctx context.Context, id string, actor BookingActor) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingCancelled, actor, true)
}

// Assign attaches a teacher to a booking awaiting assignment and moves it
// to pending. The teacher must be assigned to the booked service, have a
// window covering the slot and no conflicting booking.
func (s *BookingService) Assign(ctx context.Context, id string, req models.AssignTeacherRequest, actor BookingActor) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if actor.Role != models.RoleCenter || booking.CenterID == nil || *booking.CenterID != actor.CenterID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booked center may assign a teacher")
		}
	}
	if booking.Status != models.BookingAwaitingAssignment {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot assign a teacher to a %s booking", booking.Status))
	}
	if booking.ServiceID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking has no service to assign against")
	}

	candidates, err := s.resolver.AvailableTeachers(ctx, *booking.ServiceID, booking.BookingDate, booking.StartTime, booking.EndTime)
	if err != nil {
		return nil, err
	}
	eligible := false
	for _, candidate := range candidates {
		if candidate == req.TeacherProfileID {
			eligible = true
			break
		}
	}
	if !eligible {
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "teacher is not available for this slot")
	}

	if err := s.bookings.AssignTeacher(ctx, id, req.TeacherProfileID, models.BookingPending); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher")
	}

	booking.TeacherProfileID = &req.TeacherProfileID
	booking.Status = models.BookingPending
	s.resolver.InvalidateCache(ctx)
	s.recordAudit(ctx, actor.UserID, models.AuditActionBookingStatus, booking.ID, fmt.Sprintf(`{"assigned":%q}`, req.TeacherProfileID))
	return booking, nil
}

// Candidates lists teachers eligible to take a booking awaiting
// assignment: active assignees of the booked service whose window covers
// the slot and who have no conflicting booking that date. An empty list
// is a valid outcome, not an error.
func (s *BookingService) Candidates(ctx context.Context, id string, actor BookingActor) ([]models.TeacherSummary, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if actor.Role != models.RoleCenter || booking.CenterID == nil || *booking.CenterID != actor.CenterID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booked center may list candidates")
		}
	}
	if booking.Status != models.BookingAwaitingAssignment {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot list candidates for a %s booking", booking.Status))
	}
	if booking.ServiceID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking has no service to assign against")
	}

	ids, err := s.resolver.AvailableTeachers(ctx, *booking.ServiceID, booking.BookingDate, booking.StartTime, booking.EndTime)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.TeacherSummary{}, nil
	}

	summaries, err := s.teachers.Summaries(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher summaries")
	}
	return summaries, nil
}

func (s *BookingService) transition(ctx context.Context, id string, next models.BookingStatus, actor BookingActor, parentAllowed bool) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := actor.Role == models.RoleAdmin ||
		(actor.Role == models.RoleTeacher && booking.TeacherProfileID != nil && *booking.TeacherProfileID == actor.TeacherProfileID) ||
		(actor.Role == models.RoleCenter && booking.CenterID != nil && *booking.CenterID == actor.CenterID) ||
		(parentAllowed && actor.Role == models.RoleParent && booking.ParentID == actor.UserID)
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to change this booking")
	}

	if !booking.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move booking from %s to %s", booking.Status, next))
	}

	if err := s.bookings.UpdateStatus(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}

	booking.Status = next
	if s.resolver != nil {
		s.resolver.InvalidateCache(ctx)
	}
	s.recordAudit(ctx, actor.UserID, models.AuditActionBookingStatus, booking.ID, fmt.Sprintf(`{"status":%q}`, next))
	return booking, nil
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) afterCreate(ctx context.Context, booking *models.Booking, parentID, kind string) {
	if s.metrics != nil {
		s.metrics.RecordBookingCreated(kind)
	}
	if s.resolver != nil {
		s.resolver.InvalidateCache(ctx)
	}
	s.recordAudit(ctx, parentID, models.AuditActionBookingCreate, booking.ID, fmt.Sprintf(`{"status":%q}`, booking.Status))
}

func (s *BookingService) recordAudit(ctx context.Context, userID string, action string, bookingID, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "booking",
		ResourceID: &bookingID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record booking audit log", zap.Error(err))
	}
}
