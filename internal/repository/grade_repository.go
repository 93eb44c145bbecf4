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

// GradeRepository handles persistence of grade records.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeColumns = "id, student_id, course_id, percent_grade, letter_grade, created_at, updated_at"

// Upsert writes the grade for a (student, course) pair, replacing any previous value.
// The unique pair constraint keeps re-recording race-safe.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, course_id, percent_grade, letter_grade, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :percent_grade, :letter_grade, :created_at, :updated_at)
        ON CONFLICT (student_id, course_id) DO UPDATE
        SET percent_grade = EXCLUDED.percent_grade, letter_grade = EXCLUDED.letter_grade, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// FindByID returns a grade by its ID.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := fmt.Sprintf("SELECT %s FROM grades WHERE id = $1 LIMIT 1", gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// UpdatePercent rewrites the percent and derived letter for a grade.
func (r *GradeRepository) UpdatePercent(ctx context.Context, id string, percent float64, letter string) error {
	const query = `UPDATE grades SET percent_grade = $2, letter_grade = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, percent, letter, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a grade by ID.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM grades WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Report returns one entry per enrolled course for a student, with null grade fields
// where nothing has been recorded yet.
func (r *GradeRepository) Report(ctx context.Context, studentID string) ([]models.GradeReportEntry, error) {
	const query = `SELECT c.id AS course_id, c.name AS course_name,
        g.id AS grade_id, g.percent_grade, g.letter_grade
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN grades g ON g.student_id = e.student_id AND g.course_id = e.course_id
        WHERE e.student_id = $1
        ORDER BY c.name ASC`
	var entries []models.GradeReportEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("grade report: %w", err)
	}
	return entries, nil
}
