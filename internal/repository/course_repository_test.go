package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ze-Austin/ze-school/internal/models"
)

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "teacher", "created_at", "updated_at"})
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "Chemistry", "Mrs Ade", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Name: "Chemistry", Teacher: "Mrs Ade"}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, teacher, created_at, updated_at FROM courses WHERE name = $1 LIMIT 1")).
		WithArgs("Chemistry").
		WillReturnRows(courseRows().AddRow("c1", "Chemistry", "Mrs Ade", time.Now(), time.Now()))

	course, err := repo.FindByName(context.Background(), "Chemistry")
	require.NoError(t, err)
	assert.Equal(t, "c1", course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, teacher, created_at, updated_at FROM courses WHERE (name ILIKE $1 OR teacher ILIKE $1) ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%chem%").
		WillReturnRows(courseRows().AddRow("c1", "Chemistry", "Mrs Ade", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE (name ILIKE $1 OR teacher ILIKE $1)")).
		WithArgs("%chem%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Search: "chem"})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCountDependents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT .+ FROM enrollments").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountDependents(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
