package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/internal/repository"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
	"github.com/uniwatch/uniwatch-api/pkg/export"
)

type reportRepository interface {
	ClassAttendanceMatrix(ctx context.Context, classID string) ([]repository.ClassAttendanceRow, error)
	StudentClassAttendance(ctx context.Context, classID, studentID string) ([]repository.ClassAttendanceRow, error)
}

type classDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

// ReportCache is the subset of the redis client reports use.
type ReportCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// StudentAttendanceSummary aggregates one student's presence over a class.
type StudentAttendanceSummary struct {
	StudentID       string  `json:"student_id"`
	StudentName     string  `json:"student_name"`
	LecturesPresent int     `json:"lectures_present"`
	LecturesTotal   int     `json:"lectures_total"`
	AttendanceRate  float64 `json:"attendance_rate"`
}

// ClassReport is the per-class attendance rollup.
type ClassReport struct {
	Class    models.ClassDetail         `json:"class"`
	Lectures int                        `json:"lectures"`
	Students []StudentAttendanceSummary `json:"students"`
}

// ReportService builds attendance rollups and file exports. Rendered
// reports are cached in Redis for a short TTL since the matrix query grows
// with the term.
type ReportService struct {
	repo     reportRepository
	classes  classDetailReader
	cache    ReportCache
	cacheTTL time.Duration
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewReportService constructs ReportService. Cache may be nil, in which case
// every report is built fresh.
func NewReportService(repo reportRepository, classes classDetailReader, cache ReportCache, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{
		repo:     repo,
		classes:  classes,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// ClassSummary returns per-student attendance totals for a class.
func (s *ReportService) ClassSummary(ctx context.Context, classID string) (*ClassReport, error) {
	key := fmt.Sprintf("report:class:%s:summary", classID)
	if cached := s.cacheGet(ctx, key); cached != nil {
		var report ClassReport
		if err := json.Unmarshal(cached, &report); err == nil {
			return &report, nil
		}
	}

	report, err := s.buildClassReport(ctx, classID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(report); err == nil {
		s.cacheSet(ctx, key, raw)
	}
	return report, nil
}

// ExportClassCSV renders the class attendance matrix as CSV.
func (s *ReportService) ExportClassCSV(ctx context.Context, classID string) ([]byte, error) {
	key := fmt.Sprintf("report:class:%s:csv", classID)
	if cached := s.cacheGet(ctx, key); cached != nil {
		return cached, nil
	}

	dataset, _, err := s.buildMatrixDataset(ctx, classID)
	if err != nil {
		return nil, err
	}
	raw, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	s.cacheSet(ctx, key, raw)
	return raw, nil
}

// ExportClassPDF renders the class attendance matrix as a PDF table.
func (s *ReportService) ExportClassPDF(ctx context.Context, classID string) ([]byte, error) {
	key := fmt.Sprintf("report:class:%s:pdf", classID)
	if cached := s.cacheGet(ctx, key); cached != nil {
		return cached, nil
	}

	dataset, class, err := s.buildMatrixDataset(ctx, classID)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s %d-%s attendance", class.Name, class.Number, class.Section)
	raw, err := s.pdf.Render(*dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	s.cacheSet(ctx, key, raw)
	return raw, nil
}

// StudentSummary returns one student's lecture-by-lecture record for a class.
func (s *ReportService) StudentSummary(ctx context.Context, classID, studentID string) ([]repository.ClassAttendanceRow, error) {
	if _, err := s.classes.FindDetailByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	rows, err := s.repo.StudentClassAttendance(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return rows, nil
}

func (s *ReportService) buildClassReport(ctx context.Context, classID string) (*ClassReport, error) {
	class, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	matrix, err := s.repo.ClassAttendanceMatrix(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance matrix")
	}

	lectures := make(map[string]struct{})
	order := []string{}
	perStudent := make(map[string]*StudentAttendanceSummary)
	for _, cell := range matrix {
		lectures[cell.LectureID] = struct{}{}
		summary, ok := perStudent[cell.StudentID]
		if !ok {
			summary = &StudentAttendanceSummary{StudentID: cell.StudentID, StudentName: cell.StudentName}
			perStudent[cell.StudentID] = summary
			order = append(order, cell.StudentID)
		}
		summary.LecturesTotal++
		if cell.Present {
			summary.LecturesPresent++
		}
	}

	report := &ClassReport{Class: *class, Lectures: len(lectures)}
	for _, studentID := range order {
		summary := perStudent[studentID]
		if summary.LecturesTotal > 0 {
			summary.AttendanceRate = float64(summary.LecturesPresent) / float64(summary.LecturesTotal)
		}
		report.Students = append(report.Students, *summary)
	}
	return report, nil
}

// buildMatrixDataset pivots the attendance matrix into one row per student
// with one column per lecture date.
func (s *ReportService) buildMatrixDataset(ctx context.Context, classID string) (*export.Dataset, *models.ClassDetail, error) {
	class, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	matrix, err := s.repo.ClassAttendanceMatrix(ctx, classID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance matrix")
	}

	lectureCols := make(map[string]string)
	var colOrder []string
	dateCounts := make(map[string]int)
	students := make(map[string]map[string]string)
	var studentOrder []string

	for _, cell := range matrix {
		col, ok := lectureCols[cell.LectureID]
		if !ok {
			date := cell.RecordDate.Format("2006-01-02")
			dateCounts[date]++
			col = date
			if dateCounts[date] > 1 {
				col = fmt.Sprintf("%s (%d)", date, dateCounts[date])
			}
			lectureCols[cell.LectureID] = col
			colOrder = append(colOrder, col)
		}
		row, ok := students[cell.StudentID]
		if !ok {
			row = map[string]string{"Student": cell.StudentName}
			students[cell.StudentID] = row
			studentOrder = append(studentOrder, cell.StudentID)
		}
		if cell.Present {
			row[col] = "P"
		} else {
			row[col] = "A"
		}
	}

	headers := append([]string{"Student"}, colOrder...)
	dataset := &export.Dataset{Headers: headers}
	for _, studentID := range studentOrder {
		dataset.Rows = append(dataset.Rows, students[studentID])
	}
	return dataset, class, nil
}

func (s *ReportService) cacheGet(ctx context.Context, key string) []byte {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return raw
}

func (s *ReportService) cacheSet(ctx context.Context, key string, raw []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}
