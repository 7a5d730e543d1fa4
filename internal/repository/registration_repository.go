package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sala-school/timetable-api/internal/models"
)

// RegistrationRepository handles persistence for subject registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository creates a new repository instance.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// ListAll returns every (group, subject) registration edge.
func (r *RegistrationRepository) ListAll(ctx context.Context) ([]models.Registration, error) {
	const query = `SELECT id, group_id, subject_id, created_at FROM registrations ORDER BY group_id ASC, subject_id ASC`
	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}
