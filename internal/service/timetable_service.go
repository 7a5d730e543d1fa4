package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sala-school/timetable-api/internal/csp"
	"github.com/sala-school/timetable-api/internal/dto"
	"github.com/sala-school/timetable-api/internal/engine"
	"github.com/sala-school/timetable-api/internal/models"
	"github.com/sala-school/timetable-api/pkg/config"
	appErrors "github.com/sala-school/timetable-api/pkg/errors"
	"github.com/sala-school/timetable-api/pkg/lock"
)

type groupReader interface {
	ListAll(ctx context.Context) ([]models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type subjectReader interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type timeSlotReader interface {
	ListSchedulable(ctx context.Context, excludedPeriod int) ([]models.TimeSlot, error)
}

type registrationReader interface {
	ListAll(ctx context.Context) ([]models.Registration, error)
}

type teachingAssignmentReader interface {
	ListAll(ctx context.Context) ([]models.TeachingAssignment, error)
}

type roomReader interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type scheduleStore interface {
	ClearWithTx(ctx context.Context, exec sqlx.ExtContext) error
	BulkInsertWithTx(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduleEntry) error
	ListAll(ctx context.Context) ([]models.ScheduleEntry, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleEntry, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableService runs the generation pipeline: load scheduling facts,
// build the constraint model, solve, and materialize the verdict into a
// flat conflict-free schedule.
type TimetableService struct {
	groups      groupReader
	subjects    subjectReader
	slots       timeSlotReader
	regs        registrationReader
	assignments teachingAssignmentReader
	rooms       roomReader
	schedule    scheduleStore
	tx          txProvider
	solver      csp.Solver
	runLock     lock.RunLock
	validator   *validator.Validate
	logger      *zap.Logger
	metrics     *MetricsService
	cfg         config.SolverConfig
}

// NewTimetableService wires the generation dependencies.
func NewTimetableService(
	groups groupReader,
	subjects subjectReader,
	slots timeSlotReader,
	regs registrationReader,
	assignments teachingAssignmentReader,
	rooms roomReader,
	schedule scheduleStore,
	tx txProvider,
	solver csp.Solver,
	runLock lock.RunLock,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg config.SolverConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if solver == nil {
		solver = csp.NewSATSolver()
	}
	if runLock == nil {
		runLock = lock.NewLocalLock()
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = 300 * time.Second
	}
	if cfg.FallbackTeacherID == "" {
		cfg.FallbackTeacherID = "T00"
	}
	return &TimetableService{
		groups:      groups,
		subjects:    subjects,
		slots:       slots,
		regs:        regs,
		assignments: assignments,
		rooms:       rooms,
		schedule:    schedule,
		tx:          tx,
		solver:      solver,
		runLock:     runLock,
		validator:   validate,
		logger:      logger,
		metrics:     metrics,
		cfg:         cfg,
	}
}

type generationInputs struct {
	groups      []models.Group
	subjects    []models.Subject
	slots       []models.TimeSlot
	regs        []models.Registration
	assignments []models.TeachingAssignment
	rooms       []models.Room
}

// Generate executes one synchronous generation run. Only one run may be in
// flight against the schedule store at a time; concurrent callers fail fast
// with a conflict.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	budget := s.cfg.TimeBudget
	if req.TimeBudgetSeconds > 0 {
		budget = time.Duration(req.TimeBudgetSeconds) * time.Second
	}

	release, err := s.runLock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrAlreadyLocked) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a generation run is already in progress")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire generation lock")
	}
	defer func() {
		if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logger.Warn("failed to release generation lock", zap.Error(releaseErr))
		}
	}()

	inputs, err := s.loadInputs(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateReferences(inputs); err != nil {
		return nil, err
	}

	cal, err := engine.NewCalendar(inputs.slots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "no schedulable time slots configured")
	}

	demand := engine.ResolveDemand(inputs.regs, inputs.assignments, s.cfg.FallbackTeacherID)

	subjectByID := make(map[string]models.Subject, len(inputs.subjects))
	for _, subject := range inputs.subjects {
		subjectByID[subject.ID] = subject
	}
	roomIDs := make([]string, 0, len(inputs.rooms))
	for _, room := range inputs.rooms {
		roomIDs = append(roomIDs, room.ID)
	}

	vars, report := engine.BuildVariables(cal, demand, subjectByID, roomIDs)
	model := engine.EmitConstraints(vars, cal)

	s.logger.Info("constraint model built",
		zap.Int("groups", len(demand.Groups)),
		zap.Int("days", len(cal.Days())),
		zap.Int("periods_per_day", cal.PeriodsPerDay()),
		zap.Int("variables", vars.Len()),
		zap.Int("assignment_constraints", len(model.ExactlyOne)),
		zap.Int("exclusivity_constraints", len(model.AtMostOne)),
		zap.Int("skipped_oversized", len(report.Oversized)),
		zap.Int("skipped_no_slot", len(report.NoSlot)),
	)

	solveStart := time.Now()
	result, err := s.solver.Solve(ctx, model, budget)
	solveTime := time.Since(solveStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solver failure")
	}

	s.logger.Info("solver finished",
		zap.String("status", result.Status.String()),
		zap.Duration("solve_time", solveTime),
	)

	entries, accepted := materialize(cal, vars, result)
	if err := s.replaceSchedule(ctx, entries); err != nil {
		return nil, err
	}

	constraintGroups := len(model.ExactlyOne) + len(model.AtMostOne)
	s.metrics.ObserveGeneration(result.Status.String(), vars.Len(), constraintGroups, solveTime)

	resp := &dto.GenerateTimetableResponse{
		Status:           result.Status.String(),
		ScheduledCount:   len(entries),
		SkippedOversized: mapSkips(report.Oversized, true),
		SkippedNoSlot:    mapSkips(report.NoSlot, false),
		VariableCount:    vars.Len(),
		SolveWallTimeMS:  solveTime.Milliseconds(),
	}
	if result.Status.Usable() {
		resp.Groups = buildCoverage(demand, accepted)
	}
	return resp, nil
}

// Schedule returns the whole persisted timetable.
func (s *TimetableService) Schedule(ctx context.Context) ([]models.ScheduleEntry, error) {
	entries, err := s.schedule.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}
	return entries, nil
}

// GroupSchedule returns one group's timetable rows.
func (s *TimetableService) GroupSchedule(ctx context.Context, groupID string) ([]models.ScheduleEntry, error) {
	if groupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group id is required")
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	entries, err := s.schedule.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group schedule")
	}
	return entries, nil
}

func (s *TimetableService) loadInputs(ctx context.Context) (*generationInputs, error) {
	inputs := &generationInputs{}
	var err error

	if inputs.groups, err = s.groups.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	if inputs.subjects, err = s.subjects.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if inputs.slots, err = s.slots.ListSchedulable(ctx, s.cfg.ExcludedPeriod); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	if inputs.regs, err = s.regs.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
	}
	if inputs.assignments, err = s.assignments.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching assignments")
	}
	if inputs.rooms, err = s.rooms.ListAll(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	return inputs, nil
}

// validateReferences rejects edges pointing at entities that were never
// loaded. Teacher ids carry no master collection in the read contract and
// are trusted as-is.
func validateReferences(inputs *generationInputs) error {
	groupIDs := make(map[string]bool, len(inputs.groups))
	for _, g := range inputs.groups {
		groupIDs[g.ID] = true
	}
	subjectIDs := make(map[string]bool, len(inputs.subjects))
	for _, subject := range inputs.subjects {
		subjectIDs[subject.ID] = true
	}

	for _, reg := range inputs.regs {
		if !groupIDs[reg.GroupID] {
			return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("registration references unknown group %q", reg.GroupID))
		}
		if !subjectIDs[reg.SubjectID] {
			return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("registration references unknown subject %q", reg.SubjectID))
		}
	}
	for _, a := range inputs.assignments {
		if !subjectIDs[a.SubjectID] {
			return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("teaching assignment references unknown subject %q", a.SubjectID))
		}
	}
	return nil
}

// materialize expands every accepted placement into one entry per covered
// slot. The second return value records which (group, subject) pairs were
// placed, for coverage reporting.
func materialize(cal *engine.Calendar, vars *engine.VariableSet, result csp.Result) ([]models.ScheduleEntry, map[string]map[string]bool) {
	accepted := make(map[string]map[string]bool)
	if !result.Status.Usable() {
		return nil, accepted
	}

	var entries []models.ScheduleEntry
	for i, pl := range vars.Placements {
		if i >= len(result.Assignment) || !result.Assignment[i] {
			continue
		}
		for k := 0; k < pl.Duration; k++ {
			slot := cal.Slot(pl.Start + k)
			entries = append(entries, models.ScheduleEntry{
				GroupID:    pl.Group,
				TimeSlotID: slot.ID,
				SubjectID:  pl.Subject,
				TeacherID:  pl.Teacher,
				RoomID:     pl.Room,
			})
		}
		if accepted[pl.Group] == nil {
			accepted[pl.Group] = make(map[string]bool)
		}
		accepted[pl.Group][pl.Subject] = true
	}
	return entries, accepted
}

// replaceSchedule clears the previous schedule and writes the new rows in a
// single transaction. The clear is unconditional: a run that produced no
// usable schedule still commits an empty table, but a failed insert rolls
// the whole replacement back so a partial schedule can never survive.
func (s *TimetableService) replaceSchedule(ctx context.Context, entries []models.ScheduleEntry) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin schedule transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.schedule.ClearWithTx(ctx, tx); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear schedule")
		return err
	}
	if len(entries) > 0 {
		if err = s.schedule.BulkInsertWithTx(ctx, tx, entries); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert schedule entries")
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return err
	}
	return nil
}

func mapSkips(skips []engine.SkippedSubject, withDuration bool) []dto.SkippedSubject {
	result := make([]dto.SkippedSubject, 0, len(skips))
	for _, skip := range skips {
		item := dto.SkippedSubject{GroupID: skip.Group, SubjectID: skip.Subject}
		if withDuration {
			item.Duration = skip.Duration
		}
		result = append(result, item)
	}
	return result
}

func buildCoverage(demand engine.Demand, accepted map[string]map[string]bool) []dto.GroupCoverage {
	coverage := make([]dto.GroupCoverage, 0, len(demand.Groups))
	for _, group := range demand.Groups {
		coverage = append(coverage, dto.GroupCoverage{
			GroupID:   group,
			Scheduled: len(accepted[group]),
			Required:  len(demand.GroupSubjects[group]),
		})
	}
	return coverage
}
