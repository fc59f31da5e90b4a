package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/pkg/config"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
	"github.com/uniwatch/uniwatch-api/pkg/notify"
	"github.com/uniwatch/uniwatch-api/pkg/storage"
)

type lectureRepository interface {
	CreateWithAttendance(ctx context.Context, lecture *models.Lecture, images []models.UploadedImage, attendance []models.StudentAttendance) error
	FindByID(ctx context.Context, id string) (*models.Lecture, error)
	FindDetailByID(ctx context.Context, id string) (*models.LectureDetail, error)
	ListByClass(ctx context.Context, classID string) ([]models.Lecture, error)
	OverrideAttendance(ctx context.Context, lectureID string, corrections []models.AttendanceCorrection) error
	Delete(ctx context.Context, id string) error
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type rosterLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
}

type faceIdentifier interface {
	DetectAndIdentify(ctx context.Context, groupID string, imageURLs []string) ([]string, error)
}

type notificationMetrics interface {
	NotificationFailed()
}

// LectureService runs the attendance recording workflow: photos in,
// per-student presence rows out.
type LectureService struct {
	lectures   lectureRepository
	classes    classReader
	roster     rosterLister
	blobs      storage.Store
	recognizer faceIdentifier
	notifier   notify.Notifier
	uploads    config.UploadsConfig
	metrics    notificationMetrics
	logger     *zap.Logger
}

// NewLectureService constructs LectureService.
func NewLectureService(lectures lectureRepository, classes classReader, roster rosterLister, blobs storage.Store, recognizer faceIdentifier, notifier notify.Notifier, uploads config.UploadsConfig, logger *zap.Logger) *LectureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LectureService{
		lectures:   lectures,
		classes:    classes,
		roster:     roster,
		blobs:      blobs,
		recognizer: recognizer,
		notifier:   notifier,
		uploads:    uploads,
		logger:     logger,
	}
}

// SetMetrics attaches an optional failed notification counter.
func (s *LectureService) SetMetrics(m notificationMetrics) {
	s.metrics = m
}

// Record runs the full pipeline for one lecture: verify the class is
// trained, store the photos, identify enrolled students in them, and persist
// the lecture with one attendance row per enrollment. Students whose faces
// were identified are marked present; everyone else absent. Absentees are
// notified after commit, best effort.
func (s *LectureService) Record(ctx context.Context, classID string, uploads []ImageUpload) (*models.LectureDetail, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.TrainingStatus != models.TrainingStatusTrained {
		return nil, appErrors.Clone(appErrors.ErrRecognizerNotReady, "")
	}
	if err := validateUploads(uploads, s.uploads); err != nil {
		return nil, err
	}

	enrollments, err := s.roster.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	images := make([]models.UploadedImage, 0, len(uploads))
	urls := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		blob, err := s.blobs.Put(ctx, upload.Data, upload.Filename)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrService.Code, appErrors.ErrService.Status, "failed to store image")
		}
		images = append(images, models.UploadedImage{BlobName: blob.Name, URL: blob.URL})
		urls = append(urls, blob.URL)
	}

	identified, err := s.recognizer.DetectAndIdentify(ctx, classID, urls)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrService.Code, appErrors.ErrService.Status, "face identification failed")
	}
	present := make(map[string]struct{}, len(identified))
	for _, personID := range identified {
		present[personID] = struct{}{}
	}

	attendance := make([]models.StudentAttendance, 0, len(enrollments))
	for _, enrollment := range enrollments {
		_, found := present[enrollment.PersonID]
		attendance = append(attendance, models.StudentAttendance{
			StudentID: enrollment.StudentID,
			Present:   found,
		})
	}

	lecture := &models.Lecture{ClassID: classID}
	if err := s.lectures.CreateWithAttendance(ctx, lecture, images, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist lecture")
	}

	detail, err := s.lectures.FindDetailByID(ctx, lecture.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture detail")
	}

	s.notifyAbsentees(ctx, class, detail.Attendance)
	return detail, nil
}

// notifyAbsentees alerts each absent student over email and SMS. Delivery
// failures are logged and swallowed; the lecture is already committed.
func (s *LectureService) notifyAbsentees(ctx context.Context, class *models.Class, attendance []models.AttendanceDetail) {
	if s.notifier == nil {
		return
	}
	subject := fmt.Sprintf("Absence recorded for %s %d-%s", class.Name, class.Number, class.Section)
	for _, row := range attendance {
		if row.Present {
			continue
		}
		body := fmt.Sprintf("Hi %s, you were marked absent from today's %s lecture. Contact your instructor if this is a mistake.", row.StudentName, class.Name)
		if row.StudentEmail != "" {
			if err := s.notifier.SendEmail(ctx, row.StudentEmail, subject, body); err != nil {
				s.noteNotificationFailure()
				s.logger.Warn("absence email failed",
					zap.String("student_id", row.StudentID),
					zap.Error(err))
			}
		}
		if row.StudentPhone != "" {
			if err := s.notifier.SendSMS(ctx, row.StudentPhone, body); err != nil {
				s.noteNotificationFailure()
				s.logger.Warn("absence sms failed",
					zap.String("student_id", row.StudentID),
					zap.Error(err))
			}
		}
	}
}

func (s *LectureService) noteNotificationFailure() {
	if s.metrics != nil {
		s.metrics.NotificationFailed()
	}
}

// Override applies manual presence corrections to an existing lecture. The
// roster is fixed at record time: corrections for students without an
// attendance row are ignored and rows only change when the value differs,
// so reapplying the same corrections is a no-op.
func (s *LectureService) Override(ctx context.Context, lectureID string, corrections []models.AttendanceCorrection) (*models.LectureDetail, error) {
	if _, err := s.lectures.FindByID(ctx, lectureID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	if len(corrections) > 0 {
		if err := s.lectures.OverrideAttendance(ctx, lectureID, corrections); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to override attendance")
		}
	}
	detail, err := s.lectures.FindDetailByID(ctx, lectureID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture detail")
	}
	return detail, nil
}

// Get returns a lecture with images and attendance.
func (s *LectureService) Get(ctx context.Context, id string) (*models.LectureDetail, error) {
	detail, err := s.lectures.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	return detail, nil
}

// ListByClass returns a class's lectures, newest first.
func (s *LectureService) ListByClass(ctx context.Context, classID string) ([]models.Lecture, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	lectures, err := s.lectures.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lectures")
	}
	return lectures, nil
}

// Delete removes a lecture, its images and attendance rows. Blobs are
// deleted best effort after the database rows are gone.
func (s *LectureService) Delete(ctx context.Context, id string) error {
	detail, err := s.lectures.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	if err := s.lectures.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lecture")
	}
	for _, image := range detail.Images {
		if err := s.blobs.Delete(ctx, image.BlobName); err != nil {
			s.logger.Warn("lecture image blob delete failed",
				zap.String("lecture_id", id),
				zap.String("blob", image.BlobName),
				zap.Error(err))
		}
	}
	return nil
}
