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

// ClassRepository handles persistence of classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, number, section, semester, year, teacher_id, training_status, created_at, updated_at
        FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID returns a class with teacher info.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	const query = `SELECT c.id, c.name, c.number, c.section, c.semester, c.year, c.teacher_id, c.training_status, c.created_at, c.updated_at,
        u.first_name || ' ' || u.last_name AS teacher_name
        FROM classes c
        LEFT JOIN users u ON u.id = c.teacher_id
        WHERE c.id = $1`
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByTeacher returns all classes taught by the given teacher.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	const query = `SELECT id, name, number, section, semester, year, teacher_id, training_status, created_at, updated_at
        FROM classes WHERE teacher_id = $1 ORDER BY year DESC, semester, name`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher classes: %w", err)
	}
	return classes, nil
}

// ListByStudent returns all classes the given student is enrolled in.
func (r *ClassRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Class, error) {
	const query = `SELECT c.id, c.name, c.number, c.section, c.semester, c.year, c.teacher_id, c.training_status, c.created_at, c.updated_at
        FROM classes c
        JOIN enrollments e ON e.class_id = c.id
        WHERE e.student_id = $1 ORDER BY c.year DESC, c.semester, c.name`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, studentID); err != nil {
		return nil, fmt.Errorf("list student classes: %w", err)
	}
	return classes, nil
}

// ExistsIdentity checks the uniqueness invariant over
// (name, number, section, semester, year, teacher).
func (r *ClassRepository) ExistsIdentity(ctx context.Context, name string, number int, section string, semester models.Semester, year int, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM classes
        WHERE name = $1 AND number = $2 AND section = $3 AND semester = $4 AND year = $5 AND teacher_id = $6 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, name, number, section, semester, year, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class identity: %w", err)
	}
	return true, nil
}

// Create persists a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	if class.TrainingStatus == "" {
		class.TrainingStatus = models.TrainingStatusUntrained
	}
	const query = `INSERT INTO classes (id, name, number, section, semester, year, teacher_id, training_status, created_at, updated_at)
        VALUES (:id, :name, :number, :section, :semester, :year, :teacher_id, :training_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateTrainingStatus moves a class through the training lifecycle. When
// expect is non-empty the update only applies while the class is still in
// that state, so a stale training worker cannot clobber a roster change.
func (r *ClassRepository) UpdateTrainingStatus(ctx context.Context, id string, status, expect models.TrainingStatus) error {
	query := `UPDATE classes SET training_status = $2, updated_at = $3 WHERE id = $1`
	args := []interface{}{id, status, time.Now().UTC()}
	if expect != "" {
		query += ` AND training_status = $4`
		args = append(args, expect)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update training status: %w", err)
	}
	return nil
}

// Delete removes a class and all dependent rows (lectures, images,
// attendance, enrollments) in one transaction.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM student_attendance WHERE lecture_id IN (SELECT id FROM lectures WHERE class_id = $1)`,
		`DELETE FROM lecture_images WHERE lecture_id IN (SELECT id FROM lectures WHERE class_id = $1)`,
		`DELETE FROM lectures WHERE class_id = $1`,
		`DELETE FROM enrollments WHERE class_id = $1`,
		`DELETE FROM classes WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	return nil
}
