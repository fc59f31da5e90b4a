package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/uniwatch/uniwatch-api/internal/models"
)

func newLectureRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLectureRepositoryCreateWithAttendanceCommitsAllRows(t *testing.T) {
	db, mock, cleanup := newLectureRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lectures")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lecture_images")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_attendance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_attendance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	lecture := &models.Lecture{ClassID: "class-1"}
	images := []models.UploadedImage{{BlobName: "blob-1", URL: "https://cdn/blob-1"}}
	attendance := []models.StudentAttendance{
		{StudentID: "stu-1", Present: true},
		{StudentID: "stu-2", Present: false},
	}

	err := repo.CreateWithAttendance(context.Background(), lecture, images, attendance)
	require.NoError(t, err)
	require.NotEmpty(t, lecture.ID)
	require.Equal(t, lecture.ID, attendance[0].LectureID)
	require.Equal(t, lecture.ID, attendance[1].LectureID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryCreateWithAttendanceRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newLectureRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lectures")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lecture_images")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	lecture := &models.Lecture{ClassID: "class-1"}
	images := []models.UploadedImage{{BlobName: "blob-1", URL: "https://cdn/blob-1"}}

	err := repo.CreateWithAttendance(context.Background(), lecture, images, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryOverrideAttendanceAppliesCorrectionsInOneTx(t *testing.T) {
	db, mock, cleanup := newLectureRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_attendance SET present = $3")).
		WithArgs("lec-1", "stu-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_attendance SET present = $3")).
		WithArgs("lec-1", "stu-ghost", true).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.OverrideAttendance(context.Background(), "lec-1", []models.AttendanceCorrection{
		{StudentID: "stu-1", Present: true},
		{StudentID: "stu-ghost", Present: true},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryOverrideAttendanceRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newLectureRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_attendance SET present = $3")).
		WithArgs("lec-1", "stu-1", false).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.OverrideAttendance(context.Background(), "lec-1", []models.AttendanceCorrection{
		{StudentID: "stu-1", Present: false},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryClassAttendanceMatrix(t *testing.T) {
	db, mock, cleanup := newLectureRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	recorded := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"lecture_id", "record_date", "student_id", "present", "student_name"}).
		AddRow("lec-1", recorded, "stu-1", true, "Ada Lovelace").
		AddRow("lec-1", recorded, "stu-2", false, "Grace Hopper")
	mock.ExpectQuery(regexp.QuoteMeta("FROM lectures l")).
		WithArgs("class-1").
		WillReturnRows(rows)

	matrix, err := repo.ClassAttendanceMatrix(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, matrix, 2)
	require.True(t, matrix[0].Present)
	require.Equal(t, "Grace Hopper", matrix[1].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureRepositoryDeleteRemovesDependents(t *testing.T) {
	db, mock, cleanup := newLectureRepoMock(t)
	defer cleanup()
	repo := NewLectureRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_attendance WHERE lecture_id = $1")).
		WithArgs("lec-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lecture_images WHERE lecture_id = $1")).
		WithArgs("lec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lectures WHERE id = $1")).
		WithArgs("lec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "lec-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
