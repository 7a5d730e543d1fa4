package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sala-school/timetable-api/internal/models"
)

// TimeSlotRepository handles persistence for time slots.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new repository instance.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListSchedulable returns the calendar ordered by (day, period) with the
// fixed break period filtered out. The engine relies on this ordering for
// its global slot indexing.
func (r *TimeSlotRepository) ListSchedulable(ctx context.Context, excludedPeriod int) ([]models.TimeSlot, error) {
	const query = `SELECT id, day, period FROM timeslots WHERE period <> $1 ORDER BY day ASC, period ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, excludedPeriod); err != nil {
		return nil, fmt.Errorf("list schedulable timeslots: %w", err)
	}
	return slots, nil
}
