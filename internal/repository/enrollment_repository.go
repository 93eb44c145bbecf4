package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Ze-Austin/ze-school/internal/models"
)

// EnrollmentRepository handles persistence of student-course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, enrolled_at)
        VALUES (:id, :student_id, :course_id, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByPair returns the enrollment for a (student, course) pair.
func (r *EnrollmentRepository) FindByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrolled_at FROM enrollments
        WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Delete removes the enrollment for a (student, course) pair together with any grade
// recorded for it, keeping the grade-implies-enrollment invariant.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop enrollment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM grades WHERE student_id = $1 AND course_id = $2", studentID, courseID); err != nil {
		return fmt.Errorf("delete pair grade: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2", studentID, courseID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop enrollment: %w", err)
	}
	return nil
}

// ListCoursesByStudent joins enrollments to courses for one student.
func (r *EnrollmentRepository) ListCoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.teacher, c.created_at, c.updated_at
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.student_id = $1
        ORDER BY c.name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// ListStudentsByCourse joins enrollments to users for one course.
func (r *EnrollmentRepository) ListStudentsByCourse(ctx context.Context, courseID string) ([]models.User, error) {
	const query = `SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.matric_no, u.created_at, u.updated_at
        FROM users u
        JOIN enrollments e ON e.student_id = u.id
        WHERE e.course_id = $1
        ORDER BY u.last_name ASC`
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return students, nil
}
