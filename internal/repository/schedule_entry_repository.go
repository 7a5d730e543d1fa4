package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sala-school/timetable-api/internal/models"
)

// ScheduleEntryRepository persists the materialized timetable.
type ScheduleEntryRepository struct {
	db *sqlx.DB
}

// NewScheduleEntryRepository creates a new repository instance.
func NewScheduleEntryRepository(db *sqlx.DB) *ScheduleEntryRepository {
	return &ScheduleEntryRepository{db: db}
}

func (r *ScheduleEntryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ClearWithTx removes every schedule entry using an existing transaction.
// Each generation run fully replaces the table.
func (r *ScheduleEntryRepository) ClearWithTx(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM schedule_entries`); err != nil {
		return fmt.Errorf("clear schedule entries: %w", err)
	}
	return nil
}

// insertChunkSize keeps each multi-row statement well under the postgres
// parameter limit (7 columns per row).
const insertChunkSize = 500

// BulkInsertWithTx inserts entries using an existing transaction. Rows are
// written as chunked multi-row statements rather than one round-trip per
// entry.
func (r *ScheduleEntryRepository) BulkInsertWithTx(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduleEntry) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO schedule_entries (id, group_id, timeslot_id, subject_id, teacher_id, room_id, created_at)
		VALUES (:id, :group_id, :timeslot_id, :subject_id, :teacher_id, :room_id, :created_at)`

	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
	}

	for start := 0; start < len(entries); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(entries) {
			end = len(entries)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, entries[start:end]); err != nil {
			return fmt.Errorf("insert schedule entries: %w", err)
		}
	}
	return nil
}

// ListAll returns the whole schedule joined with slot ordering.
func (r *ScheduleEntryRepository) ListAll(ctx context.Context) ([]models.ScheduleEntry, error) {
	const query = `
SELECT se.id, se.group_id, se.timeslot_id, se.subject_id, se.teacher_id, se.room_id, se.created_at
FROM schedule_entries se
JOIN timeslots ts ON ts.id = se.timeslot_id
ORDER BY se.group_id ASC, ts.day ASC, ts.period ASC`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// ListByGroup returns one group's rows ordered by slot.
func (r *ScheduleEntryRepository) ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleEntry, error) {
	const query = `
SELECT se.id, se.group_id, se.timeslot_id, se.subject_id, se.teacher_id, se.room_id, se.created_at
FROM schedule_entries se
JOIN timeslots ts ON ts.id = se.timeslot_id
WHERE se.group_id = $1
ORDER BY ts.day ASC, ts.period ASC`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, groupID); err != nil {
		return nil, fmt.Errorf("list schedule entries by group: %w", err)
	}
	return entries, nil
}
