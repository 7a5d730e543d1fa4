package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestTeachingAssignmentRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingAssignmentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "subject_id", "teacher_id", "created_at"}).
		AddRow("a1", "S1", "T01", time.Now()).
		AddRow("a2", "S1", "T02", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_id, teacher_id, created_at FROM teaching_assignments")).
		WillReturnRows(rows)

	assignments, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	require.Equal(t, "T02", assignments[1].TeacherID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "theory", "practice", "created_at"}).
		AddRow("S1", "Physics", 2, 1, time.Now()).
		AddRow("S2", "History", 2, 0, time.Now())
	mock.ExpectQuery("SELECT id, name, COALESCE").
		WillReturnRows(rows)

	subjects, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	require.Equal(t, 3, subjects[0].Duration())
	require.Equal(t, 2, subjects[1].Duration())
	require.NoError(t, mock.ExpectationsWereMet())
}
