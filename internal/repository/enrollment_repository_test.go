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

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "s1", "c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "enrolled_at"}).
		AddRow("e1", "s1", "c1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, enrolled_at FROM enrollments\n        WHERE student_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs("s1", "c1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByPair(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "e1", enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteRemovesGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grades WHERE student_id = $1 AND course_id = $2")).
		WithArgs("s1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("s1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "s1", "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM grades").
		WithArgs("s1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM enrollments").
		WithArgs("s1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "s1", "c1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListCoursesByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "teacher", "created_at", "updated_at"}).
		AddRow("c1", "Chemistry", "Mrs Ade", time.Now(), time.Now()).
		AddRow("c2", "Mathematics", "Mr Bello", time.Now(), time.Now())
	mock.ExpectQuery("SELECT c.id, c.name, c.teacher").
		WithArgs("s1").
		WillReturnRows(rows)

	courses, err := repo.ListCoursesByStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
