package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ze-Austin/ze-school/internal/models"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
)

type mockCourseRepo struct {
	courses    map[string]*models.Course
	dependents map[string]int
	listTotal  int
	createErr  error
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.courses == nil {
		m.courses = make(map[string]*models.Course)
	}
	if course.ID == "" {
		course.ID = "generated"
	}
	copied := *course
	m.courses[course.ID] = &copied
	return nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindByName(ctx context.Context, name string) (*models.Course, error) {
	for _, c := range m.courses {
		if c.Name == name {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	courses := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		courses = append(courses, *c)
	}
	return courses, m.listTotal, nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := m.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *course
	m.courses[course.ID] = &copied
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) CountDependents(ctx context.Context, id string) (int, error) {
	return m.dependents[id], nil
}

type mockEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
	created     int
	createErr   error
	racedWith   *models.Enrollment
}

func pairKey(studentID, courseID string) string { return studentID + "/" + courseID }

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]*models.Enrollment)
	}
	if m.createErr != nil {
		// simulate a concurrent enroll committing just before this insert
		if m.racedWith != nil {
			copied := *m.racedWith
			m.enrollments[pairKey(copied.StudentID, copied.CourseID)] = &copied
		}
		return m.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "generated"
	}
	copied := *enrollment
	m.enrollments[pairKey(enrollment.StudentID, enrollment.CourseID)] = &copied
	m.created++
	return nil
}

func (m *mockEnrollmentRepo) FindByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[pairKey(studentID, courseID)]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, studentID, courseID string) error {
	key := pairKey(studentID, courseID)
	if _, ok := m.enrollments[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, key)
	return nil
}

func (m *mockEnrollmentRepo) ListCoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListStudentsByCourse(ctx context.Context, courseID string) ([]models.User, error) {
	return nil, nil
}

func newCourseFixture() (*CourseService, *mockCourseRepo, *mockEnrollmentRepo) {
	courses := &mockCourseRepo{courses: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Mathematics", Teacher: "Mr Bello"},
	}}
	enrollments := &mockEnrollmentRepo{}
	students := &mockStudentReader{users: map[string]*models.User{
		"s1": {ID: "s1", FirstName: "Ada", LastName: "Obi", Role: models.RoleStudent},
		"a1": {ID: "a1", FirstName: "Head", LastName: "Master", Role: models.RoleAdmin},
	}}
	return NewCourseService(courses, enrollments, students, nil, nil), courses, enrollments
}

func TestCourseServiceCreate(t *testing.T) {
	svc, repo, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), CreateCourseRequest{Name: "Physics", Teacher: "Mrs Ade"})
	require.NoError(t, err)
	assert.NotEmpty(t, course.ID)
	assert.Len(t, repo.courses, 2)
}

func TestCourseServiceCreateDuplicateName(t *testing.T) {
	svc, _, _ := newCourseFixture()

	_, err := svc.Create(context.Background(), CreateCourseRequest{Name: "Mathematics", Teacher: "Mrs Ade"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceUpdate(t *testing.T) {
	svc, repo, _ := newCourseFixture()

	course, err := svc.Update(context.Background(), "c1", UpdateCourseRequest{Name: "Further Mathematics", Teacher: "Mr Bello"})
	require.NoError(t, err)
	assert.Equal(t, "Further Mathematics", course.Name)
	assert.Equal(t, "Further Mathematics", repo.courses["c1"].Name)
}

func TestCourseServiceDeleteWithEnrollments(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.dependents = map[string]int{"c1": 3}

	err := svc.Delete(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.courses, 1)
}

func TestCourseServiceEnroll(t *testing.T) {
	svc, _, enrollments := newCourseFixture()

	enrollment, err := svc.Enroll(context.Background(), "c1", EnrollRequest{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", enrollment.StudentID)
	assert.Equal(t, "c1", enrollment.CourseID)
	assert.Equal(t, 1, enrollments.created)
}

func TestCourseServiceEnrollIdempotent(t *testing.T) {
	svc, _, enrollments := newCourseFixture()

	first, err := svc.Enroll(context.Background(), "c1", EnrollRequest{StudentID: "s1"})
	require.NoError(t, err)
	second, err := svc.Enroll(context.Background(), "c1", EnrollRequest{StudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, enrollments.created)
}

func TestCourseServiceEnrollRejectsAdmin(t *testing.T) {
	svc, _, _ := newCourseFixture()

	_, err := svc.Enroll(context.Background(), "c1", EnrollRequest{StudentID: "a1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceEnrollUnknownCourse(t *testing.T) {
	svc, _, _ := newCourseFixture()

	_, err := svc.Enroll(context.Background(), "nope", EnrollRequest{StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceDrop(t *testing.T) {
	svc, _, enrollments := newCourseFixture()

	_, err := svc.Enroll(context.Background(), "c1", EnrollRequest{StudentID: "s1"})
	require.NoError(t, err)

	require.NoError(t, svc.Drop(context.Background(), "c1", "s1"))
	assert.Empty(t, enrollments.enrollments)

	err = svc.Drop(context.Background(), "c1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceCreateConcurrentDuplicate(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.createErr = &pq.Error{Code: "23505"}

	_, err := svc.Create(context.Background(), CreateCourseRequest{Name: "Physics", Teacher: "Mrs Ade"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceEnrollConcurrentDuplicate(t *testing.T) {
	svc, _, enrollments := newCourseFixture()
	enrollments.createErr = &pq.Error{Code: "23505"}
	enrollments.racedWith = &models.Enrollment{ID: "e1", StudentID: "s1", CourseID: "c1"}

	enrollment, err := svc.Enroll(context.Background(), "c1", EnrollRequest{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "e1", enrollment.ID)
	assert.Zero(t, enrollments.created)
}
