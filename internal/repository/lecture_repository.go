package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniwatch/uniwatch-api/internal/models"
)

// ClassAttendanceRow is one cell of the per-class attendance matrix used by
// reports: a student's presence at a single lecture.
type ClassAttendanceRow struct {
	LectureID   string    `db:"lecture_id" json:"lecture_id"`
	RecordDate  time.Time `db:"record_date" json:"record_date"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	Present     bool      `db:"present" json:"present"`
}

// LectureRepository handles persistence of lectures, their source images and
// the attendance rows taken from them.
type LectureRepository struct {
	db *sqlx.DB
}

// NewLectureRepository constructs the repository.
func NewLectureRepository(db *sqlx.DB) *LectureRepository {
	return &LectureRepository{db: db}
}

// CreateWithAttendance persists a lecture, its uploaded images and the full
// attendance roster in a single transaction. Either all of it lands or none
// of it does.
func (r *LectureRepository) CreateWithAttendance(ctx context.Context, lecture *models.Lecture, images []models.UploadedImage, attendance []models.StudentAttendance) error {
	if lecture.ID == "" {
		lecture.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lecture.RecordDate.IsZero() {
		lecture.RecordDate = now
	}
	lecture.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record lecture: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertLecture = `INSERT INTO lectures (id, class_id, record_date, created_at)
        VALUES (:id, :class_id, :record_date, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertLecture, lecture); err != nil {
		return fmt.Errorf("insert lecture: %w", err)
	}

	const insertImage = `INSERT INTO lecture_images (id, lecture_id, blob_name, url, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	for i := range images {
		img := &images[i]
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
		img.CreatedAt = now
		if _, err := tx.ExecContext(ctx, insertImage, img.ID, lecture.ID, img.BlobName, img.URL, img.CreatedAt); err != nil {
			return fmt.Errorf("insert lecture image: %w", err)
		}
	}

	const insertAttendance = `INSERT INTO student_attendance (id, lecture_id, student_id, present)
        VALUES (:id, :lecture_id, :student_id, :present)`
	for i := range attendance {
		row := &attendance[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.LectureID = lecture.ID
		if _, err := tx.NamedExecContext(ctx, insertAttendance, row); err != nil {
			return fmt.Errorf("insert attendance row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record lecture: %w", err)
	}
	return nil
}

// FindByID returns a lecture by ID.
func (r *LectureRepository) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	const query = `SELECT id, class_id, record_date, created_at FROM lectures WHERE id = $1`
	var lecture models.Lecture
	if err := r.db.GetContext(ctx, &lecture, query, id); err != nil {
		return nil, err
	}
	return &lecture, nil
}

// FindDetailByID returns a lecture with its images and attendance roster.
func (r *LectureRepository) FindDetailByID(ctx context.Context, id string) (*models.LectureDetail, error) {
	lecture, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.LectureDetail{Lecture: *lecture}

	const imagesQuery = `SELECT id, blob_name, url, created_at FROM lecture_images
        WHERE lecture_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &detail.Images, imagesQuery, id); err != nil {
		return nil, fmt.Errorf("load lecture images: %w", err)
	}

	const attendanceQuery = `SELECT a.id, a.lecture_id, a.student_id, a.present,
        u.first_name || ' ' || u.last_name AS student_name, u.email AS student_email, u.phone AS student_phone
        FROM student_attendance a
        JOIN users u ON u.id = a.student_id
        WHERE a.lecture_id = $1 ORDER BY u.last_name, u.first_name`
	if err := r.db.SelectContext(ctx, &detail.Attendance, attendanceQuery, id); err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	return detail, nil
}

// ListByClass returns the lectures of a class, newest first.
func (r *LectureRepository) ListByClass(ctx context.Context, classID string) ([]models.Lecture, error) {
	const query = `SELECT id, class_id, record_date, created_at
        FROM lectures WHERE class_id = $1 ORDER BY record_date DESC, created_at DESC`
	var lectures []models.Lecture
	if err := r.db.SelectContext(ctx, &lectures, query, classID); err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}
	return lectures, nil
}

// OverrideAttendance applies manual presence corrections to a lecture in one
// transaction. A correction only touches a row that already exists and
// currently holds the opposite value; corrections for students without a row
// are skipped. Override never creates roster rows.
func (r *LectureRepository) OverrideAttendance(ctx context.Context, lectureID string, corrections []models.AttendanceCorrection) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin override attendance: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE student_attendance SET present = $3
        WHERE lecture_id = $1 AND student_id = $2 AND present <> $3`
	for _, correction := range corrections {
		if _, err := tx.ExecContext(ctx, query, lectureID, correction.StudentID, correction.Present); err != nil {
			return fmt.Errorf("override attendance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit override attendance: %w", err)
	}
	return nil
}

// ClassAttendanceMatrix returns every (lecture, student) presence cell for a
// class, ordered by lecture date then student name. Reports build the CSV
// and PDF grids from this.
func (r *LectureRepository) ClassAttendanceMatrix(ctx context.Context, classID string) ([]ClassAttendanceRow, error) {
	const query = `SELECT l.id AS lecture_id, l.record_date, a.student_id, a.present,
        u.first_name || ' ' || u.last_name AS student_name
        FROM lectures l
        JOIN student_attendance a ON a.lecture_id = l.id
        JOIN users u ON u.id = a.student_id
        WHERE l.class_id = $1
        ORDER BY l.record_date, l.created_at, u.last_name, u.first_name`
	var rows []ClassAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("class attendance matrix: %w", err)
	}
	return rows, nil
}

// StudentClassAttendance returns one student's presence across a class's
// lectures, oldest first.
func (r *LectureRepository) StudentClassAttendance(ctx context.Context, classID, studentID string) ([]ClassAttendanceRow, error) {
	const query = `SELECT l.id AS lecture_id, l.record_date, a.student_id, a.present,
        u.first_name || ' ' || u.last_name AS student_name
        FROM lectures l
        JOIN student_attendance a ON a.lecture_id = l.id AND a.student_id = $2
        JOIN users u ON u.id = a.student_id
        WHERE l.class_id = $1
        ORDER BY l.record_date, l.created_at`
	var rows []ClassAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, studentID); err != nil {
		return nil, fmt.Errorf("student attendance: %w", err)
	}
	return rows, nil
}

// Delete removes a lecture with its images and attendance rows.
func (r *LectureRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete lecture: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM student_attendance WHERE lecture_id = $1`,
		`DELETE FROM lecture_images WHERE lecture_id = $1`,
		`DELETE FROM lectures WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete lecture: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete lecture: %w", err)
	}
	return nil
}
