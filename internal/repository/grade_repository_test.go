package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ze-Austin/ze-school/internal/models"
)

func TestGradeRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades .+ ON CONFLICT").
		WithArgs(sqlmock.AnyArg(), "s1", "c1", 92.5, "A", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	grade := &models.Grade{StudentID: "s1", CourseID: "c1", PercentGrade: 92.5, LetterGrade: "A"}
	require.NoError(t, repo.Upsert(context.Background(), grade))
	assert.NotEmpty(t, grade.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "percent_grade", "letter_grade", "created_at", "updated_at"}).
		AddRow("g1", "s1", "c1", 75.0, "C", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, percent_grade, letter_grade, created_at, updated_at FROM grades WHERE id = $1 LIMIT 1")).
		WithArgs("g1").
		WillReturnRows(rows)

	grade, err := repo.FindByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "C", grade.LetterGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdatePercentMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("UPDATE grades SET").
		WithArgs("nope", 50.0, "E", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePercent(context.Background(), "nope", 50, "E")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryReport(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{"course_id", "course_name", "grade_id", "percent_grade", "letter_grade"}).
		AddRow("c1", "Chemistry", "g1", 82.0, "B").
		AddRow("c2", "Mathematics", nil, nil, nil)
	mock.ExpectQuery("SELECT c.id AS course_id, c.name AS course_name").
		WithArgs("s1").
		WillReturnRows(rows)

	entries, err := repo.Report(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", *entries[0].LetterGrade)
	assert.Nil(t, entries[1].GradeID)
	assert.Nil(t, entries[1].PercentGrade)
	assert.Nil(t, entries[1].LetterGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}
