package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Ze-Austin/ze-school/internal/models"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
)

type gradeRepository interface {
	Upsert(ctx context.Context, grade *models.Grade) error
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	UpdatePercent(ctx context.Context, id string, percent float64, letter string) error
	Delete(ctx context.Context, id string) error
	Report(ctx context.Context, studentID string) ([]models.GradeReportEntry, error)
}

type enrollmentReader interface {
	FindByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

// RecordGradeRequest describes a grade entry payload.
type RecordGradeRequest struct {
	CourseID     string  `json:"course_id" validate:"required"`
	PercentGrade float64 `json:"percent_grade" validate:"gte=0,lte=100"`
}

// UpdateGradeRequest rewrites the percent of an existing grade.
type UpdateGradeRequest struct {
	PercentGrade float64 `json:"percent_grade" validate:"gte=0,lte=100"`
}

// LetterGrade converts a percent score into its letter using the fixed five-way
// partition, closed on the lower bound of each band.
func LetterGrade(percent float64) string {
	switch {
	case percent >= 90:
		return "A"
	case percent >= 80:
		return "B"
	case percent >= 70:
		return "C"
	case percent >= 60:
		return "D"
	case percent >= 50:
		return "E"
	default:
		return "F"
	}
}

// GradePoint maps a letter grade to its GPA points.
func GradePoint(letter string) float64 {
	switch letter {
	case "A":
		return 4.0
	case "B":
		return 3.3
	case "C":
		return 2.3
	case "D":
		return 1.3
	default:
		return 0
	}
}

// GradeService manages the grade ledger and CGPA aggregation.
type GradeService struct {
	grades      gradeRepository
	enrollments enrollmentReader
	students    studentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs a GradeService instance.
func NewGradeService(grades gradeRepository, enrollments enrollmentReader, students studentReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, enrollments: enrollments, students: students, validator: validate, logger: logger}
}

// Record writes a student's grade in a course. The student must be enrolled;
// re-recording the pair replaces the previous value.
func (s *GradeService) Record(ctx context.Context, studentID string, req RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "percent grade must be between 0 and 100")
	}

	if _, err := s.enrollments.FindByPair(ctx, studentID, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	grade := &models.Grade{
		StudentID:    studentID,
		CourseID:     req.CourseID,
		PercentGrade: req.PercentGrade,
		LetterGrade:  LetterGrade(req.PercentGrade),
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.logger.Info("grade recorded",
		zap.String("student_id", studentID),
		zap.String("course_id", req.CourseID),
		zap.Float64("percent", req.PercentGrade),
	)
	return grade, nil
}

// Update rewrites a grade's percent, recomputing the letter.
func (s *GradeService) Update(ctx context.Context, gradeID string, req UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "percent grade must be between 0 and 100")
	}

	grade, err := s.grades.FindByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}

	letter := LetterGrade(req.PercentGrade)
	if err := s.grades.UpdatePercent(ctx, gradeID, req.PercentGrade, letter); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}

	grade.PercentGrade = req.PercentGrade
	grade.LetterGrade = letter
	return grade, nil
}

// Delete removes a grade by ID.
func (s *GradeService) Delete(ctx context.Context, gradeID string) error {
	if err := s.grades.Delete(ctx, gradeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}

// Report returns one entry per course the student is enrolled in, ungraded courses
// included with null percent and letter.
func (s *GradeService) Report(ctx context.Context, studentID string) ([]models.GradeReportEntry, error) {
	if _, err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	entries, err := s.grades.Report(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade report")
	}
	return entries, nil
}

// CGPA aggregates grade points across a student's enrolled courses. Ungraded courses
// count toward the divisor but contribute no points; this mirrors the established
// grading policy and is isolated here should it ever change.
func (s *GradeService) CGPA(ctx context.Context, studentID string) (*models.CGPAResult, error) {
	student, err := s.requireStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	entries, err := s.grades.Report(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student has no enrollments")
	}

	var totalPoints float64
	graded := 0
	for _, entry := range entries {
		if entry.LetterGrade == nil {
			continue
		}
		totalPoints += GradePoint(*entry.LetterGrade)
		graded++
	}

	cgpa := math.Round(totalPoints/float64(len(entries))*100) / 100

	return &models.CGPAResult{
		StudentID:     studentID,
		StudentName:   student.FullName(),
		CourseCount:   len(entries),
		GradedCourses: graded,
		CGPA:          cgpa,
	}, nil
}

func (s *GradeService) requireStudent(ctx context.Context, studentID string) (*models.User, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}
