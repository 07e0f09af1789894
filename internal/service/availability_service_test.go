package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type availabilityWindowRepoStub struct {
	windows []models.TeacherAvailability
	err     error
	created *models.TeacherAvailability
	deleted string
}

func (s *availabilityWindowRepoStub) FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, w := range s.windows {
		if w.ID == id {
			copied := w
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *availabilityWindowRepoStub) ListByTeacher(ctx context.Context, teacherProfileID string) ([]models.TeacherAvailability, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.TeacherAvailability
	for _, w := range s.windows {
		if w.TeacherProfileID == teacherProfileID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *availabilityWindowRepoStub) ListByTeacherAndDay(ctx context.Context, teacherProfileID string, dayOfWeek int) ([]models.TeacherAvailability, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.TeacherAvailability
	for _, w := range s.windows {
		if w.TeacherProfileID == teacherProfileID && w.DayOfWeek == dayOfWeek {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *availabilityWindowRepoStub) ListByTeachersAndDay(ctx context.Context, teacherProfileIDs []string, dayOfWeek int) ([]models.TeacherAvailability, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := make(map[string]bool, len(teacherProfileIDs))
	for _, id := range teacherProfileIDs {
		ids[id] = true
	}
	var out []models.TeacherAvailability
	for _, w := range s.windows {
		if ids[w.TeacherProfileID] && w.DayOfWeek == dayOfWeek {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *availabilityWindowRepoStub) Create(ctx context.Context, window *models.TeacherAvailability) error {
	if s.err != nil {
		return s.err
	}
	window.ID = "win-new"
	s.created = window
	return nil
}

func (s *availabilityWindowRepoStub) Update(ctx context.Context, window *models.TeacherAvailability) error {
	return s.err
}

func (s *availabilityWindowRepoStub) Delete(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = id
	return nil
}

type occupancyRepoStub struct {
	bookings []models.Booking
	err      error
}

func (s *occupancyRepoStub) ListOccupying(ctx context.Context, teacherProfileID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Booking
	for _, b := range s.bookings {
		if b.TeacherProfileID != nil && *b.TeacherProfileID == teacherProfileID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *occupancyRepoStub) ListOccupyingForTeachers(ctx context.Context, teacherProfileIDs []string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bookings, nil
}

type assignmentRepoStub struct {
	service     *models.CenterService
	assignments []models.TeacherServiceAssignment
	err         error
}

func (s *assignmentRepoStub) FindByID(ctx context.Context, id string) (*models.CenterService, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.service == nil {
		return nil, sql.ErrNoRows
	}
	return s.service, nil
}

func (s *assignmentRepoStub) ListActiveAssignments(ctx context.Context, serviceID string) ([]models.TeacherServiceAssignment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.assignments, nil
}

// 2026-09-07 is a Monday.
var slotDate = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func occupying(teacherProfileID, start, end string) models.Booking {
	id := teacherProfileID
	return models.Booking{
		TeacherProfileID: &id,
		Status:           models.BookingConfirmed,
		BookingDate:      slotDate,
		StartTime:        start,
		EndTime:          end,
	}
}

func newAvailabilityService(windows *availabilityWindowRepoStub, bookings *occupancyRepoStub, assignments *assignmentRepoStub) *AvailabilityService {
	return NewAvailabilityService(windows, bookings, assignments, nil, validator.New(), nil, time.Minute)
}

func TestAvailabilityServiceTeacherSlotsBlocksWholeWindow(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
		{ID: "w2", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "13:00", EndTime: "15:00"},
	}}
	bookings := &occupancyRepoStub{bookings: []models.Booking{occupying("tp-1", "10:00", "11:00")}}
	service := newAvailabilityService(windows, bookings, &assignmentRepoStub{})

	slots, err := service.TeacherSlots(context.Background(), "tp-1", slotDate)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].IsBooked, "partial overlap must block the whole window")
	assert.False(t, slots[1].IsBooked)
}

func TestAvailabilityServiceTeacherSlotsAdjacentBookingDoesNotBlock(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
	}}
	bookings := &occupancyRepoStub{bookings: []models.Booking{occupying("tp-1", "12:00", "13:00")}}
	service := newAvailabilityService(windows, bookings, &assignmentRepoStub{})

	slots, err := service.TeacherSlots(context.Background(), "tp-1", slotDate)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.False(t, slots[0].IsBooked)
}

func TestAvailabilityServiceServiceSlotsGroupsIdenticalWindows(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
		{ID: "w2", TeacherProfileID: "tp-2", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
		{ID: "w3", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "13:00", EndTime: "15:00"},
	}}
	bookings := &occupancyRepoStub{bookings: []models.Booking{occupying("tp-2", "09:30", "10:30")}}
	assignments := &assignmentRepoStub{
		service: &models.CenterService{ID: "svc-1", CenterID: "c-1", Active: true},
		assignments: []models.TeacherServiceAssignment{
			{ServiceID: "svc-1", TeacherProfileID: "tp-1", Active: true},
			{ServiceID: "svc-1", TeacherProfileID: "tp-2", Active: true},
		},
	}
	service := newAvailabilityService(windows, bookings, assignments)

	slots, err := service.ServiceSlots(context.Background(), "svc-1", slotDate)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, 2, slots[0].TotalCount)
	assert.Equal(t, 1, slots[0].AvailableCount)
	assert.True(t, slots[0].IsAvailable)

	assert.Equal(t, "13:00", slots[1].StartTime)
	assert.Equal(t, 1, slots[1].TotalCount)
	assert.Equal(t, 1, slots[1].AvailableCount)
}

func TestAvailabilityServiceServiceSlotsNoFreeTeachers(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
	}}
	bookings := &occupancyRepoStub{bookings: []models.Booking{occupying("tp-1", "11:00", "12:00")}}
	assignments := &assignmentRepoStub{
		service:     &models.CenterService{ID: "svc-1", CenterID: "c-1", Active: true},
		assignments: []models.TeacherServiceAssignment{{ServiceID: "svc-1", TeacherProfileID: "tp-1", Active: true}},
	}
	service := newAvailabilityService(windows, bookings, assignments)

	slots, err := service.ServiceSlots(context.Background(), "svc-1", slotDate)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 0, slots[0].AvailableCount)
	assert.False(t, slots[0].IsAvailable)
}

func TestAvailabilityServiceServiceSlotsInactiveService(t *testing.T) {
	assignments := &assignmentRepoStub{service: &models.CenterService{ID: "svc-1", Active: false}}
	service := newAvailabilityService(&availabilityWindowRepoStub{}, &occupancyRepoStub{}, assignments)

	_, err := service.ServiceSlots(context.Background(), "svc-1", slotDate)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceAvailableTeachersRequiresFullCover(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "11:00"},
		{ID: "w2", TeacherProfileID: "tp-2", DayOfWeek: 1, StartTime: "08:00", EndTime: "13:00"},
		{ID: "w3", TeacherProfileID: "tp-3", DayOfWeek: 1, StartTime: "08:00", EndTime: "13:00"},
	}}
	bookings := &occupancyRepoStub{bookings: []models.Booking{occupying("tp-3", "11:30", "12:30")}}
	assignments := &assignmentRepoStub{
		assignments: []models.TeacherServiceAssignment{
			{ServiceID: "svc-1", TeacherProfileID: "tp-1", Active: true},
			{ServiceID: "svc-1", TeacherProfileID: "tp-2", Active: true},
			{ServiceID: "svc-1", TeacherProfileID: "tp-3", Active: true},
		},
	}
	service := newAvailabilityService(windows, bookings, assignments)

	available, err := service.AvailableTeachers(context.Background(), "svc-1", slotDate, "09:00", "12:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"tp-2"}, available)
}

func TestAvailabilityServiceAddWindowRejectsOverlap(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
	}}
	service := newAvailabilityService(windows, &occupancyRepoStub{}, &assignmentRepoStub{})

	_, err := service.AddWindow(context.Background(), "tp-1", models.AvailabilityWindowRequest{
		DayOfWeek: 1, StartTime: "11:00", EndTime: "14:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, windows.created)
}

func TestAvailabilityServiceAddWindowAllowsAdjacent(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
	}}
	service := newAvailabilityService(windows, &occupancyRepoStub{}, &assignmentRepoStub{})

	window, err := service.AddWindow(context.Background(), "tp-1", models.AvailabilityWindowRequest{
		DayOfWeek: 1, StartTime: "12:00", EndTime: "14:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "win-new", window.ID)
}

func TestAvailabilityServiceAddWindowRejectsInvalidRange(t *testing.T) {
	service := newAvailabilityService(&availabilityWindowRepoStub{}, &occupancyRepoStub{}, &assignmentRepoStub{})

	_, err := service.AddWindow(context.Background(), "tp-1", models.AvailabilityWindowRequest{
		DayOfWeek: 1, StartTime: "14:00", EndTime: "13:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceUpdateWindowOwnership(t *testing.T) {
	windows := &availabilityWindowRepoStub{windows: []models.TeacherAvailability{
		{ID: "w1", TeacherProfileID: "tp-2", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
	}}
	service := newAvailabilityService(windows, &occupancyRepoStub{}, &assignmentRepoStub{})

	_, err := service.UpdateWindow(context.Background(), "tp-1", "w1", models.AvailabilityWindowRequest{
		DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
