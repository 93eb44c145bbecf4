package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Ze-Austin/ze-school/internal/models"
	"github.com/Ze-Austin/ze-school/pkg/database"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByName(ctx context.Context, name string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	CountDependents(ctx context.Context, id string) (int, error)
}

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Delete(ctx context.Context, studentID, courseID string) error
	ListCoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error)
	ListStudentsByCourse(ctx context.Context, courseID string) ([]models.User, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateCourseRequest describes catalog creation payload.
type CreateCourseRequest struct {
	Name    string `json:"name" validate:"required"`
	Teacher string `json:"teacher" validate:"required"`
}

// UpdateCourseRequest describes catalog update payload.
type UpdateCourseRequest struct {
	Name    string `json:"name" validate:"required"`
	Teacher string `json:"teacher" validate:"required"`
}

// EnrollRequest registers a student into a course.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// CourseService manages the course catalog and enrollment workflows.
type CourseService struct {
	courses     courseRepository
	enrollments enrollmentRepository
	students    studentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courses courseRepository, enrollments enrollmentRepository, students studentReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, enrollments: enrollments, students: students, validator: validate, logger: logger}
}

// Create registers a new catalog course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	if _, err := s.courses.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course with this name already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course name")
	}

	course := &models.Course{Name: req.Name, Teacher: req.Teacher}
	if err := s.courses.Create(ctx, course); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns catalog courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update edits a course's name and teacher.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != course.Name {
		if existing, err := s.courses.FindByName(ctx, req.Name); err == nil && existing.ID != id {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course with this name already exists")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course name")
		}
	}

	course.Name = req.Name
	course.Teacher = req.Teacher
	if err := s.courses.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course with this name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course. Courses with active enrollments or grades are rejected.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	dependents, err := s.courses.CountDependents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check dependents")
	}
	if dependents > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course still has enrollments or grades")
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

// Enroll registers a student into a course. Re-enrolling an existing pair returns the
// existing enrollment rather than erroring.
func (s *CourseService) Enroll(ctx context.Context, courseID string, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if existing, err := s.enrollments.FindByPair(ctx, req.StudentID, courseID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, CourseID: courseID}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if database.IsUniqueViolation(err) {
			// a concurrent enroll won the race; return its row
			return s.existingEnrollment(ctx, req.StudentID, courseID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled", zap.String("student_id", req.StudentID), zap.String("course_id", courseID))
	return enrollment, nil
}

func (s *CourseService) existingEnrollment(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	existing, err := s.enrollments.FindByPair(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return existing, nil
}

// Drop removes a student's enrollment and any grade recorded for the pair.
func (s *CourseService) Drop(ctx context.Context, courseID, studentID string) error {
	if err := s.enrollments.Delete(ctx, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	s.logger.Info("student dropped", zap.String("student_id", studentID), zap.String("course_id", courseID))
	return nil
}

// CoursesOf lists the courses a student is enrolled in.
func (s *CourseService) CoursesOf(ctx context.Context, studentID string) ([]models.Course, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	courses, err := s.enrollments.ListCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student courses")
	}
	return courses, nil
}

// StudentsOf lists the students enrolled in a course.
func (s *CourseService) StudentsOf(ctx context.Context, courseID string) ([]models.User, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	students, err := s.enrollments.ListStudentsByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course students")
	}
	return students, nil
}
