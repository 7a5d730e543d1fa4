package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sala-school/timetable-api/internal/dto"
	"github.com/sala-school/timetable-api/internal/models"
	"github.com/sala-school/timetable-api/pkg/config"
	appErrors "github.com/sala-school/timetable-api/pkg/errors"
	"github.com/sala-school/timetable-api/pkg/lock"
)

type groupReaderStub struct {
	groups  []models.Group
	findErr error
}

func (s *groupReaderStub) ListAll(context.Context) ([]models.Group, error) {
	return s.groups, nil
}

func (s *groupReaderStub) FindByID(_ context.Context, id string) (*models.Group, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := range s.groups {
		if s.groups[i].ID == id {
			return &s.groups[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type subjectReaderStub struct{ subjects []models.Subject }

func (s *subjectReaderStub) ListAll(context.Context) ([]models.Subject, error) {
	return s.subjects, nil
}

type timeSlotReaderStub struct {
	slots          []models.TimeSlot
	excludedPeriod int
}

func (s *timeSlotReaderStub) ListSchedulable(_ context.Context, excludedPeriod int) ([]models.TimeSlot, error) {
	s.excludedPeriod = excludedPeriod
	return s.slots, nil
}

type registrationReaderStub struct{ regs []models.Registration }

func (s *registrationReaderStub) ListAll(context.Context) ([]models.Registration, error) {
	return s.regs, nil
}

type teachingAssignmentReaderStub struct{ assignments []models.TeachingAssignment }

func (s *teachingAssignmentReaderStub) ListAll(context.Context) ([]models.TeachingAssignment, error) {
	return s.assignments, nil
}

type roomReaderStub struct{ rooms []models.Room }

func (s *roomReaderStub) ListAll(context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

type scheduleStoreStub struct {
	cleared   bool
	inserted  []models.ScheduleEntry
	insertErr error
	existing  []models.ScheduleEntry
}

func (s *scheduleStoreStub) ClearWithTx(context.Context, sqlx.ExtContext) error {
	s.cleared = true
	return nil
}

func (s *scheduleStoreStub) BulkInsertWithTx(_ context.Context, _ sqlx.ExtContext, entries []models.ScheduleEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, entries...)
	return nil
}

func (s *scheduleStoreStub) ListAll(context.Context) ([]models.ScheduleEntry, error) {
	return s.existing, nil
}

func (s *scheduleStoreStub) ListByGroup(_ context.Context, groupID string) ([]models.ScheduleEntry, error) {
	var out []models.ScheduleEntry
	for _, e := range s.existing {
		if e.GroupID == groupID {
			out = append(out, e)
		}
	}
	return out, nil
}

type rejectingLock struct{}

func (rejectingLock) Acquire(context.Context) (func(context.Context) error, error) {
	return nil, lock.ErrAlreadyLocked
}

type fixture struct {
	groups      []models.Group
	subjects    []models.Subject
	slots       []models.TimeSlot
	regs        []models.Registration
	assignments []models.TeachingAssignment
	rooms       []models.Room
}

func weekSlots(days, periods int) []models.TimeSlot {
	var slots []models.TimeSlot
	for d := 1; d <= days; d++ {
		for p := 1; p <= periods; p++ {
			slots = append(slots, models.TimeSlot{
				ID:     fmt.Sprintf("d%dp%d", d, p),
				Day:    d,
				Period: p,
			})
		}
	}
	return slots
}

func newTestService(t *testing.T, f fixture, runLock lock.RunLock) (*TimetableService, *scheduleStoreStub, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	store := &scheduleStoreStub{}
	svc := NewTimetableService(
		&groupReaderStub{groups: f.groups},
		&subjectReaderStub{subjects: f.subjects},
		&timeSlotReaderStub{slots: f.slots},
		&registrationReaderStub{regs: f.regs},
		&teachingAssignmentReaderStub{assignments: f.assignments},
		&roomReaderStub{rooms: f.rooms},
		store,
		db,
		nil,
		runLock,
		nil,
		nil,
		nil,
		config.SolverConfig{FallbackTeacherID: "T00"},
	)
	return svc, store, mock
}

func expectReplace(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func slotByID(slots []models.TimeSlot, id string) models.TimeSlot {
	for _, s := range slots {
		if s.ID == id {
			return s
		}
	}
	return models.TimeSlot{}
}

func TestGeneratePlacesMultiPeriodSubjectContiguously(t *testing.T) {
	f := fixture{
		groups:      []models.Group{{ID: "G1", Name: "10A"}},
		subjects:    []models.Subject{{ID: "S1", Name: "Physics", Theory: 1, Practice: 1}},
		slots:       weekSlots(2, 3),
		regs:        []models.Registration{{ID: "r1", GroupID: "G1", SubjectID: "S1"}},
		assignments: []models.TeachingAssignment{{ID: "a1", SubjectID: "S1", TeacherID: "T01"}},
		rooms:       []models.Room{{ID: "R1", Name: "Lab"}},
	}
	svc, store, mock := newTestService(t, f, nil)
	expectReplace(mock)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	assert.Equal(t, "FEASIBLE", resp.Status)
	assert.Equal(t, 2, resp.ScheduledCount)
	assert.Empty(t, resp.SkippedOversized)
	assert.Empty(t, resp.SkippedNoSlot)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, dto.GroupCoverage{GroupID: "G1", Scheduled: 1, Required: 1}, resp.Groups[0])

	require.Len(t, store.inserted, 2)
	first := slotByID(f.slots, store.inserted[0].TimeSlotID)
	second := slotByID(f.slots, store.inserted[1].TimeSlotID)
	assert.Equal(t, first.Day, second.Day)
	assert.Equal(t, first.Period+1, second.Period)
	for _, entry := range store.inserted {
		assert.Equal(t, "G1", entry.GroupID)
		assert.Equal(t, "S1", entry.SubjectID)
		assert.Equal(t, "T01", entry.TeacherID)
		assert.Equal(t, "R1", entry.RoomID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateSkipsOversizedSubject(t *testing.T) {
	f := fixture{
		groups:      []models.Group{{ID: "G1"}},
		subjects:    []models.Subject{{ID: "S1", Theory: 4, Practice: 3}},
		slots:       weekSlots(5, 5),
		regs:        []models.Registration{{ID: "r1", GroupID: "G1", SubjectID: "S1"}},
		assignments: []models.TeachingAssignment{{ID: "a1", SubjectID: "S1", TeacherID: "T01"}},
		rooms:       []models.Room{{ID: "R1"}},
	}
	svc, store, mock := newTestService(t, f, nil)
	expectReplace(mock)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	assert.Equal(t, "FEASIBLE", resp.Status)
	assert.Equal(t, 0, resp.ScheduledCount)
	assert.Equal(t, 0, resp.VariableCount)
	require.Len(t, resp.SkippedOversized, 1)
	assert.Equal(t, dto.SkippedSubject{GroupID: "G1", SubjectID: "S1", Duration: 7}, resp.SkippedOversized[0])
	assert.True(t, store.cleared)
	assert.Empty(t, store.inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateUsesFallbackTeacherForUnassignedSubject(t *testing.T) {
	f := fixture{
		groups:   []models.Group{{ID: "G1"}},
		subjects: []models.Subject{{ID: "S1", Theory: 1}},
		slots:    weekSlots(1, 2),
		regs:     []models.Registration{{ID: "r1", GroupID: "G1", SubjectID: "S1"}},
		rooms:    []models.Room{{ID: "R1"}},
	}
	svc, store, mock := newTestService(t, f, nil)
	expectReplace(mock)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	assert.Equal(t, "FEASIBLE", resp.Status)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "T00", store.inserted[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateReportsInfeasibleAndStillClears(t *testing.T) {
	// Two groups, one room, one slot: room exclusivity cannot hold.
	f := fixture{
		groups:   []models.Group{{ID: "G1"}, {ID: "G2"}},
		subjects: []models.Subject{{ID: "S1", Theory: 1}, {ID: "S2", Theory: 1}},
		slots:    weekSlots(1, 1),
		regs: []models.Registration{
			{ID: "r1", GroupID: "G1", SubjectID: "S1"},
			{ID: "r2", GroupID: "G2", SubjectID: "S2"},
		},
		assignments: []models.TeachingAssignment{
			{ID: "a1", SubjectID: "S1", TeacherID: "T01"},
			{ID: "a2", SubjectID: "S2", TeacherID: "T02"},
		},
		rooms: []models.Room{{ID: "R1"}},
	}
	svc, store, mock := newTestService(t, f, nil)
	expectReplace(mock)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	assert.Equal(t, "INFEASIBLE", resp.Status)
	assert.Equal(t, 0, resp.ScheduledCount)
	assert.Empty(t, resp.Groups)
	assert.True(t, store.cleared)
	assert.Empty(t, store.inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateNeverDoubleBooksResources(t *testing.T) {
	f := fixture{
		groups: []models.Group{{ID: "G1"}, {ID: "G2"}},
		subjects: []models.Subject{
			{ID: "S1", Theory: 1},
			{ID: "S2", Theory: 1},
			{ID: "S3", Theory: 1},
		},
		slots: weekSlots(2, 2),
		regs: []models.Registration{
			{ID: "r1", GroupID: "G1", SubjectID: "S1"},
			{ID: "r2", GroupID: "G1", SubjectID: "S2"},
			{ID: "r3", GroupID: "G2", SubjectID: "S2"},
			{ID: "r4", GroupID: "G2", SubjectID: "S3"},
		},
		assignments: []models.TeachingAssignment{
			{ID: "a1", SubjectID: "S1", TeacherID: "T01"},
			{ID: "a2", SubjectID: "S2", TeacherID: "T02"},
			{ID: "a3", SubjectID: "S3", TeacherID: "T01"},
		},
		rooms: []models.Room{{ID: "R1"}, {ID: "R2"}},
	}
	svc, store, mock := newTestService(t, f, nil)
	expectReplace(mock)

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	require.Equal(t, "FEASIBLE", resp.Status)
	require.Len(t, store.inserted, 4)

	groupSlot := make(map[string]bool)
	teacherSlot := make(map[string]bool)
	roomSlot := make(map[string]bool)
	for _, entry := range store.inserted {
		gk := entry.GroupID + "/" + entry.TimeSlotID
		tk := entry.TeacherID + "/" + entry.TimeSlotID
		rk := entry.RoomID + "/" + entry.TimeSlotID
		assert.False(t, groupSlot[gk], "group double-booked at %s", gk)
		assert.False(t, teacherSlot[tk], "teacher double-booked at %s", tk)
		assert.False(t, roomSlot[rk], "room double-booked at %s", rk)
		groupSlot[gk] = true
		teacherSlot[tk] = true
		roomSlot[rk] = true
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateRejectsConcurrentRun(t *testing.T) {
	svc, _, _ := newTestService(t, fixture{}, rejectingLock{})

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestGenerateRejectsUnknownReferences(t *testing.T) {
	f := fixture{
		groups:   []models.Group{{ID: "G1"}},
		subjects: []models.Subject{{ID: "S1", Theory: 1}},
		slots:    weekSlots(1, 2),
		regs:     []models.Registration{{ID: "r1", GroupID: "G9", SubjectID: "S1"}},
		rooms:    []models.Room{{ID: "R1"}},
	}
	svc, store, _ := newTestService(t, f, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErr.Code)
	assert.False(t, store.cleared)
}

func TestGenerateRejectsEmptyCalendar(t *testing.T) {
	f := fixture{
		groups:   []models.Group{{ID: "G1"}},
		subjects: []models.Subject{{ID: "S1", Theory: 1}},
		regs:     []models.Registration{{ID: "r1", GroupID: "G1", SubjectID: "S1"}},
		rooms:    []models.Room{{ID: "R1"}},
	}
	svc, _, _ := newTestService(t, f, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErr.Code)
}

func TestGenerateRejectsInvalidBudget(t *testing.T) {
	svc, _, _ := newTestService(t, fixture{}, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{TimeBudgetSeconds: -1})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGenerateReportsDeterministicSkips(t *testing.T) {
	f := fixture{
		groups: []models.Group{{ID: "G1"}, {ID: "G2"}},
		subjects: []models.Subject{
			{ID: "S1", Theory: 4, Practice: 2},
			{ID: "S2", Theory: 5, Practice: 1},
		},
		slots: weekSlots(5, 4),
		regs: []models.Registration{
			{ID: "r1", GroupID: "G1", SubjectID: "S1"},
			{ID: "r2", GroupID: "G2", SubjectID: "S2"},
			{ID: "r3", GroupID: "G2", SubjectID: "S1"},
		},
		rooms: []models.Room{{ID: "R1"}},
	}

	var previous []dto.SkippedSubject
	for run := 0; run < 3; run++ {
		svc, _, mock := newTestService(t, f, nil)
		expectReplace(mock)
		resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{})
		require.NoError(t, err)
		require.Len(t, resp.SkippedOversized, 3)
		if run > 0 {
			assert.Equal(t, previous, resp.SkippedOversized)
		}
		previous = resp.SkippedOversized
	}
}

func TestGroupScheduleNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, fixture{groups: []models.Group{{ID: "G1"}}}, nil)

	_, err := svc.GroupSchedule(context.Background(), "G9")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGroupScheduleReturnsRows(t *testing.T) {
	svc, store, _ := newTestService(t, fixture{groups: []models.Group{{ID: "G1"}}}, nil)
	store.existing = []models.ScheduleEntry{
		{ID: "e1", GroupID: "G1", TimeSlotID: "d1p1", SubjectID: "S1", TeacherID: "T01", RoomID: "R1"},
		{ID: "e2", GroupID: "G2", TimeSlotID: "d1p1", SubjectID: "S2", TeacherID: "T02", RoomID: "R2"},
	}

	entries, err := svc.GroupSchedule(context.Background(), "G1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}
