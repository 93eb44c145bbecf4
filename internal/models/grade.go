package models

import "time"

// Grade stores a student's result in a course. The letter is always derived from the
// percent via the classifier and rewritten together with it.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	PercentGrade float64   `db:"percent_grade" json:"percent_grade"`
	LetterGrade  string    `db:"letter_grade" json:"letter_grade"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeReportEntry is one line of a student's grade report. Enrollment, not grading,
// determines the entry set: ungraded courses appear with null percent and letter.
type GradeReportEntry struct {
	CourseID     string   `db:"course_id" json:"course_id"`
	CourseName   string   `db:"course_name" json:"course_name"`
	GradeID      *string  `db:"grade_id" json:"grade_id,omitempty"`
	PercentGrade *float64 `db:"percent_grade" json:"percent_grade"`
	LetterGrade  *string  `db:"letter_grade" json:"letter_grade"`
}

// CGPAResult reports the aggregate grade-point average for a student.
type CGPAResult struct {
	StudentID     string  `json:"student_id"`
	StudentName   string  `json:"student_name"`
	CourseCount   int     `json:"course_count"`
	GradedCourses int     `json:"graded_courses"`
	CGPA          float64 `json:"cgpa"`
}
