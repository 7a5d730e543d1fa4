package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sala-school/timetable-api/internal/models"
)

// TeachingAssignmentRepository persists subject-teacher eligibility edges.
type TeachingAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeachingAssignmentRepository constructs the repository.
func NewTeachingAssignmentRepository(db *sqlx.DB) *TeachingAssignmentRepository {
	return &TeachingAssignmentRepository{db: db}
}

// ListAll returns every (subject, teacher) teaching edge.
func (r *TeachingAssignmentRepository) ListAll(ctx context.Context) ([]models.TeachingAssignment, error) {
	const query = `SELECT id, subject_id, teacher_id, created_at FROM teaching_assignments ORDER BY subject_id ASC, teacher_id ASC`
	var assignments []models.TeachingAssignment
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("list teaching assignments: %w", err)
	}
	return assignments, nil
}
