package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniwatch/uniwatch-api/internal/models"
)

// EnrollmentRepository handles persistence of class enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByClassAndStudent returns the enrollment linking a student to a class.
func (r *EnrollmentRepository) FindByClassAndStudent(ctx context.Context, classID, studentID string) (*models.Enrollment, error) {
	const query = `SELECT id, class_id, student_id, person_id, enrolled_at
        FROM enrollments WHERE class_id = $1 AND student_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, classID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsByClassAndStudent reports whether the student is already enrolled.
func (r *EnrollmentRepository) ExistsByClassAndStudent(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE class_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListByClass returns the class roster with student contact details.
func (r *EnrollmentRepository) ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.class_id, e.student_id, e.person_id, e.enrolled_at,
        u.first_name || ' ' || u.last_name AS student_name, u.email AS student_email, u.phone AS student_phone
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.class_id = $1 ORDER BY u.last_name, u.first_name`
	var roster []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &roster, query, classID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return roster, nil
}

// Create persists a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, class_id, student_id, person_id, enrolled_at)
        VALUES (:id, :class_id, :student_id, :person_id, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// DeleteWithAttendance removes an enrollment together with the student's
// attendance rows for that class. Both go in one transaction so a
// half-removed student never lingers in old lectures.
func (r *EnrollmentRepository) DeleteWithAttendance(ctx context.Context, classID, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unenroll: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deleteAttendance = `DELETE FROM student_attendance
        WHERE student_id = $2 AND lecture_id IN (SELECT id FROM lectures WHERE class_id = $1)`
	if _, err := tx.ExecContext(ctx, deleteAttendance, classID, studentID); err != nil {
		return fmt.Errorf("delete attendance rows: %w", err)
	}

	const deleteEnrollment = `DELETE FROM enrollments WHERE class_id = $1 AND student_id = $2`
	if _, err := tx.ExecContext(ctx, deleteEnrollment, classID, studentID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unenroll: %w", err)
	}
	return nil
}
