package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type bookingLedgerStub struct {
	bookings map[string]*models.Booking
	// conflictFor marks teacher profile IDs whose CreateIfFree fails
	// with a slot conflict.
	conflictFor map[string]bool
	created     []*models.Booking
	err         error
	statusSet   models.BookingStatus
	assignedTo  string
}

func (s *bookingLedgerStub) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	if b, ok := s.bookings[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookingLedgerStub) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	var out []models.Booking
	for _, b := range s.bookings {
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (s *bookingLedgerStub) Create(ctx context.Context, booking *models.Booking) error {
	if s.err != nil {
		return s.err
	}
	booking.ID = "bk-new"
	s.created = append(s.created, booking)
	return nil
}

func (s *bookingLedgerStub) CreateIfFree(ctx context.Context, booking *models.Booking, occupying []models.BookingStatus) error {
	if s.err != nil {
		return s.err
	}
	if booking.TeacherProfileID != nil && s.conflictFor[*booking.TeacherProfileID] {
		return &models.SlotConflictError{
			TeacherProfileID: *booking.TeacherProfileID,
			BookingDate:      booking.BookingDate,
			StartTime:        booking.StartTime,
			EndTime:          booking.EndTime,
		}
	}
	booking.ID = "bk-new"
	s.created = append(s.created, booking)
	return nil
}

func (s *bookingLedgerStub) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	if s.err != nil {
		return s.err
	}
	s.statusSet = status
	return nil
}

func (s *bookingLedgerStub) AssignTeacher(ctx context.Context, id, teacherProfileID string, status models.BookingStatus) error {
	if s.err != nil {
		return s.err
	}
	s.assignedTo = teacherProfileID
	s.statusSet = status
	return nil
}

func (s *bookingLedgerStub) ListOccupying(ctx context.Context, teacherProfileID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	return nil, s.err
}

type bookingTeacherStub struct {
	teacher *models.TeacherProfileDetail
	// rate, when set, is the current rate returned by HourlyRate so
	// tests can diverge it from the loaded profile.
	rate float64
	err  error
}

func (s *bookingTeacherStub) FindByID(ctx context.Context, id string) (*models.TeacherProfileDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.teacher == nil {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

func (s *bookingTeacherStub) HourlyRate(ctx context.Context, id string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.rate != 0 {
		return s.rate, nil
	}
	return s.teacher.HourlyRate, nil
}

func (s *bookingTeacherStub) Summaries(ctx context.Context, ids []string) ([]models.TeacherSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	summaries := make([]models.TeacherSummary, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, models.TeacherSummary{ID: id, FullName: "Teacher " + id})
	}
	return summaries, nil
}

type bookingServiceStub struct {
	service *models.CenterService
	err     error
}

func (s *bookingServiceStub) FindByID(ctx context.Context, id string) (*models.CenterService, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.service == nil {
		return nil, sql.ErrNoRows
	}
	return s.service, nil
}

func (s *bookingServiceStub) ListActiveAssignments(ctx context.Context, serviceID string) ([]models.TeacherServiceAssignment, error) {
	return nil, s.err
}

type resolverStub struct {
	candidates  []string
	err         error
	invalidated int
}

func (s *resolverStub) AvailableTeachers(ctx context.Context, serviceID string, date time.Time, startTime, endTime string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func (s *resolverStub) InvalidateCache(ctx context.Context) {
	s.invalidated++
}

type metricsStub struct {
	created   map[string]int
	conflicts int
}

func (s *metricsStub) RecordBookingCreated(kind string) {
	if s.created == nil {
		s.created = make(map[string]int)
	}
	s.created[kind]++
}

func (s *metricsStub) RecordBookingConflict() {
	s.conflicts++
}

func verifiedTeacher(rate float64) *models.TeacherProfileDetail {
	return &models.TeacherProfileDetail{TeacherProfile: models.TeacherProfile{
		ID:         "tp-1",
		HourlyRate: rate,
		Verified:   true,
		Active:     true,
	}}
}

func directRequest() models.CreateDirectBookingRequest {
	return models.CreateDirectBookingRequest{
		TeacherProfileID: "tp-1",
		BookingDate:      "2026-09-07",
		StartTime:        "10:00",
		EndTime:          "11:30",
	}
}

func TestBookingServiceCreateDirect(t *testing.T) {
	ledger := &bookingLedgerStub{}
	metrics := &metricsStub{}
	resolver := &resolverStub{}
	service := NewBookingService(ledger, &bookingTeacherStub{teacher: verifiedTeacher(200)}, &bookingServiceStub{}, &auditLoggerStub{}, resolver, metrics, validator.New(), nil, false)

	booking, err := service.CreateDirect(context.Background(), "parent-1", directRequest())
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "tp-1", *booking.TeacherProfileID)
	assert.InDelta(t, 300.0, booking.TotalAmount, 0.001, "90 minutes at 200/hour")
	assert.Equal(t, 1, metrics.created["direct"])
	assert.Equal(t, 1, resolver.invalidated)
}

func TestBookingServiceCreateDirectSnapshotsCurrentRate(t *testing.T) {
	ledger := &bookingLedgerStub{}
	// The profile carries a stale rate; the snapshot must use the rate
	// read at creation time.
	teachers := &bookingTeacherStub{teacher: verifiedTeacher(200), rate: 240}
	service := NewBookingService(ledger, teachers, &bookingServiceStub{}, &auditLoggerStub{}, &resolverStub{}, &metricsStub{}, validator.New(), nil, false)

	booking, err := service.CreateDirect(context.Background(), "parent-1", directRequest())
	require.NoError(t, err)
	assert.InDelta(t, 360.0, booking.TotalAmount, 0.001, "90 minutes at 240/hour")
}

func TestBookingServiceCreateDirectSlotConflict(t *testing.T) {
	ledger := &bookingLedgerStub{conflictFor: map[string]bool{"tp-1": true}}
	metrics := &metricsStub{}
	service := NewBookingService(ledger, &bookingTeacherStub{teacher: verifiedTeacher(200)}, &bookingServiceStub{}, &auditLoggerStub{}, &resolverStub{}, metrics, validator.New(), nil, false)

	_, err := service.CreateDirect(context.Background(), "parent-1", directRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, metrics.conflicts)
	assert.Empty(t, ledger.created)
}

func TestBookingServiceCreateDirectUnverifiedTeacher(t *testing.T) {
	teacher := verifiedTeacher(200)
	teacher.Verified = false
	service := NewBookingService(&bookingLedgerStub{}, &bookingTeacherStub{teacher: teacher}, &bookingServiceStub{}, &auditLoggerStub{}, &resolverStub{}, &metricsStub{}, validator.New(), nil, false)

	_, err := service.CreateDirect(context.Background(), "parent-1", directRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCreateDirectInvalidRange(t *testing.T) {
	service := NewBookingService(&bookingLedgerStub{}, &bookingTeacherStub{teacher: verifiedTeacher(200)}, &bookingServiceStub{}, &auditLoggerStub{}, &resolverStub{}, &metricsStub{}, validator.New(), nil, false)

	req := directRequest()
	req.EndTime = "10:00"
	_, err := service.CreateDirect(context.Background(), "parent-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func serviceRequest() models.CreateServiceBookingRequest {
	return models.CreateServiceBookingRequest{
		CenterID:    "c-1",
		ServiceID:   "svc-1",
		BookingDate: "2026-09-07",
		StartTime:   "10:00",
		EndTime:     "11:00",
	}
}

func activeOffering() *models.CenterService {
	return &models.CenterService{ID: "svc-1", CenterID: "c-1", Price: 500, Active: true}
}

func TestBookingServiceCreateForServiceAutoAssign(t *testing.T) {
	ledger := &bookingLedgerStub{}
	resolver := &resolverStub{candidates: []string{"tp-1", "tp-2"}}
	metrics := &metricsStub{}
	service := NewBookingService(ledger, &bookingTeacherStub{}, &bookingServiceStub{service: activeOffering()}, &auditLoggerStub{}, resolver, metrics, validator.New(), nil, true)

	booking, err := service.CreateForService(context.Background(), "parent-1", serviceRequest())
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "tp-1", *booking.TeacherProfileID)
	assert.InDelta(t, 500.0, booking.TotalAmount, 0.001)
	assert.Equal(t, 1, metrics.created["service"])
}

func TestBookingServiceCreateForServiceRetriesNextCandidate(t *testing.T) {
	ledger := &bookingLedgerStub{conflictFor: map[string]bool{"tp-1": true}}
	resolver := &resolverStub{candidates: []string{"tp-1", "tp-2"}}
	service := NewBookingService(ledger, &bookingTeacherStub{}, &bookingServiceStub{service: activeOffering()}, &auditLoggerStub{}, resolver, &metricsStub{}, validator.New(), nil, true)

	booking, err := service.CreateForService(context.Background(), "parent-1", serviceRequest())
	require.NoError(t, err)
	assert.Equal(t, "tp-2", *booking.TeacherProfileID)
	assert.Equal(t, models.BookingPending, booking.Status)
}

func TestBookingServiceCreateForServiceFallsBackToAwaiting(t *testing.T) {
	ledger := &bookingLedgerStub{conflictFor: map[string]bool{"tp-1": true, "tp-2": true}}
	resolver := &resolverStub{candidates: []string{"tp-1", "tp-2"}}
	service := NewBookingService(ledger, &bookingTeacherStub{}, &bookingServiceStub{service: activeOffering()}, &auditLoggerStub{}, resolver, &metricsStub{}, validator.New(), nil, true)

	booking, err := service.CreateForService(context.Background(), "parent-1", serviceRequest())
	require.NoError(t, err)
	assert.Nil(t, booking.TeacherProfileID)
	assert.Equal(t, models.BookingAwaitingAssignment, booking.Status)
}

func TestBookingServiceCreateForServiceWithoutAutoAssign(t *testing.T) {
	ledger := &bookingLedgerStub{}
	service := NewBookingService(ledger, &bookingTeacherStub{}, &bookingServiceStub{service: activeOffering()}, &auditLoggerStub{}, &resolverStub{}, &metricsStub{}, validator.New(), nil, false)

	booking, err := service.CreateForService(context.Background(), "parent-1", serviceRequest())
	require.NoError(t, err)
	assert.Nil(t, booking.TeacherProfileID)
	assert.Equal(t, models.BookingAwaitingAssignment, booking.Status)
}

func TestBookingServiceCreateForServiceWrongCenter(t *testing.T) {
	offering := activeOffering()
	offering.CenterID = "c-2"
	service := NewBookingService(&bookingLedgerStub{}, &bookingTeacherStub{}, &bookingServiceStub{service: offering}, &auditLoggerStub{}, &resolverStub{}, &metricsStub{}, validator.New(), nil, false)

	_, err := service.CreateForService(context.Background(), "parent-1", serviceRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func ledgerWith(b *models.Booking) *bookingLedgerStub {
	return &bookingLedgerStub{bookings: map[string]*models.Booking{b.ID: b}}
}

func storedBooking(status models.BookingStatus) *models.Booking {
	teacher := "tp-1"
	center := "c-1"
	svc := "svc-1"
	return &models.Booking{
		ID:               "bk-1",
		ParentID:         "parent-1",
		TeacherProfileID: &teacher,
		CenterID:         &center,
		ServiceID:        &svc,
		Status:           status,
		BookingDate:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartTime:        "10:00",
		EndTime:          "11:00",
	}
}

func newTransitionService(ledger *bookingLedgerStub) *BookingService {
	return NewBookingService(ledger, &bookingTeacherStub{}, &bookingServiceStub{}, &auditLoggerStub{}, &resolverStub{candidates: []string{"tp-1"}}, &metricsStub{}, validator.New(), nil, false)
}

func TestBookingServiceConfirmPending(t *testing.T) {
	ledger := ledgerWith(storedBooking(models.BookingPending))
	service := newTransitionService(ledger)

	booking, err := service.Confirm(context.Background(), "bk-1", BookingActor{UserID: "u-t", Role: models.RoleTeacher, TeacherProfileID: "tp-1"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, models.BookingConfirmed, ledger.statusSet)
}

func TestBookingServiceConfirmDeniedForParent(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingPending)))

	_, err := service.Confirm(context.Background(), "bk-1", BookingActor{UserID: "parent-1", Role: models.RoleParent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCompleteRequiresConfirmed(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingPending)))

	_, err := service.Complete(context.Background(), "bk-1", BookingActor{UserID: "u-a", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCancelByParent(t *testing.T) {
	ledger := ledgerWith(storedBooking(models.BookingConfirmed))
	service := newTransitionService(ledger)

	booking, err := service.Cancel(context.Background(), "bk-1", BookingActor{UserID: "parent-1", Role: models.RoleParent})
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)
}

func TestBookingServiceCancelledIsTerminal(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingCancelled)))

	_, err := service.Cancel(context.Background(), "bk-1", BookingActor{UserID: "u-a", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCompletedIsTerminal(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingCompleted)))

	_, err := service.Cancel(context.Background(), "bk-1", BookingActor{UserID: "u-a", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceAssign(t *testing.T) {
	ledger := ledgerWith(storedBooking(models.BookingAwaitingAssignment))
	service := newTransitionService(ledger)

	booking, err := service.Assign(context.Background(), "bk-1", models.AssignTeacherRequest{TeacherProfileID: "tp-1"}, BookingActor{UserID: "u-c", Role: models.RoleCenter, CenterID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "tp-1", ledger.assignedTo)
}

func TestBookingServiceAssignRejectsUnavailableTeacher(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingAwaitingAssignment)))

	_, err := service.Assign(context.Background(), "bk-1", models.AssignTeacherRequest{TeacherProfileID: "tp-9"}, BookingActor{UserID: "u-a", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceAssignWrongCenter(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingAwaitingAssignment)))

	_, err := service.Assign(context.Background(), "bk-1", models.AssignTeacherRequest{TeacherProfileID: "tp-1"}, BookingActor{UserID: "u-c", Role: models.RoleCenter, CenterID: "c-9"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceAssignRequiresAwaitingStatus(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingPending)))

	_, err := service.Assign(context.Background(), "bk-1", models.AssignTeacherRequest{TeacherProfileID: "tp-1"}, BookingActor{UserID: "u-a", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCandidates(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingAwaitingAssignment)))

	candidates, err := service.Candidates(context.Background(), "bk-1", BookingActor{UserID: "u-c", Role: models.RoleCenter, CenterID: "c-1"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "tp-1", candidates[0].ID)
	assert.Equal(t, "Teacher tp-1", candidates[0].FullName)
}

func TestBookingServiceCandidatesEmptyIsValid(t *testing.T) {
	ledger := ledgerWith(storedBooking(models.BookingAwaitingAssignment))
	service := NewBookingService(ledger, &bookingTeacherStub{}, &bookingServiceStub{}, &auditLoggerStub{}, &resolverStub{}, &metricsStub{}, validator.New(), nil, false)

	candidates, err := service.Candidates(context.Background(), "bk-1", BookingActor{UserID: "u-a", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestBookingServiceCandidatesWrongCenter(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingAwaitingAssignment)))

	_, err := service.Candidates(context.Background(), "bk-1", BookingActor{UserID: "u-c", Role: models.RoleCenter, CenterID: "c-9"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCandidatesRequiresAwaitingStatus(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingPending)))

	_, err := service.Candidates(context.Background(), "bk-1", BookingActor{UserID: "u-a", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceGetScopedToParticipants(t *testing.T) {
	service := newTransitionService(ledgerWith(storedBooking(models.BookingPending)))

	_, err := service.Get(context.Background(), "bk-1", BookingActor{UserID: "parent-2", Role: models.RoleParent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	booking, err := service.Get(context.Background(), "bk-1", BookingActor{UserID: "parent-1", Role: models.RoleParent})
	require.NoError(t, err)
	assert.Equal(t, "bk-1", booking.ID)
}

func TestBookingServiceLedgerError(t *testing.T) {
	ledger := &bookingLedgerStub{err: errors.New("db down")}
	service := newTransitionService(ledger)

	_, _, err := service.List(context.Background(), models.BookingFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
