package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/uniwatch/uniwatch-api/internal/models"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByClassAndStudent(ctx context.Context, classID, studentID string) (*models.Enrollment, error)
	ExistsByClassAndStudent(ctx context.Context, classID, studentID string) (bool, error)
	ListByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	DeleteWithAttendance(ctx context.Context, classID, studentID string) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type profileReader interface {
	FindDetailByStudent(ctx context.Context, studentID string) (*models.FacialProfileDetail, error)
}

type trainingStatusWriter interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	UpdateTrainingStatus(ctx context.Context, id string, status, expect models.TrainingStatus) error
}

type personRegistry interface {
	CreatePerson(ctx context.Context, groupID, name string) (string, error)
	DeletePerson(ctx context.Context, groupID, personID string) error
	AddFace(ctx context.Context, groupID, personID, imageURL string) error
}

// EnrollmentService keeps the class roster and the recognition service's
// person group in step with each other.
type EnrollmentService struct {
	repo       enrollmentRepository
	users      userReader
	profiles   profileReader
	classes    trainingStatusWriter
	recognizer personRegistry
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, users userReader, profiles profileReader, classes trainingStatusWriter, recognizer personRegistry, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, users: users, profiles: profiles, classes: classes, recognizer: recognizer, logger: logger}
}

// Roster returns the class roster with student contact details.
func (s *EnrollmentService) Roster(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	roster, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

// Enroll adds a student to a class. The student must already have a facial
// profile with at least one image: the images are registered as a person in
// the class's recognition group, and the class drops back to untrained until
// the group is retrained.
func (s *EnrollmentService) Enroll(ctx context.Context, classID, studentID string) (*models.Enrollment, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student account inactive")
	}

	exists, err := s.repo.ExistsByClassAndStudent(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roster")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled")
	}

	profile, err := s.profiles.FindDetailByStudent(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student has no facial profile")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load facial profile")
	}
	if len(profile.Images) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "facial profile has no images")
	}

	personID, err := s.recognizer.CreatePerson(ctx, classID, student.FullName())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrService.Code, appErrors.ErrService.Status, "failed to register student face")
	}
	for _, image := range profile.Images {
		if err := s.recognizer.AddFace(ctx, classID, personID, image.URL); err != nil {
			if delErr := s.recognizer.DeletePerson(ctx, classID, personID); delErr != nil {
				s.logger.Warn("person cleanup failed after face upload error",
					zap.String("class_id", classID),
					zap.String("person_id", personID),
					zap.Error(delErr))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrService.Code, appErrors.ErrService.Status, "failed to register face image")
		}
	}

	enrollment := &models.Enrollment{ClassID: classID, StudentID: studentID, PersonID: personID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if delErr := s.recognizer.DeletePerson(ctx, classID, personID); delErr != nil {
			s.logger.Warn("person cleanup failed after enrollment error",
				zap.String("class_id", classID),
				zap.String("person_id", personID),
				zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if err := s.classes.UpdateTrainingStatus(ctx, classID, models.TrainingStatusUntrained, ""); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset training status")
	}
	return enrollment, nil
}

// Unenroll removes a student from a class: their person leaves the
// recognition group, their attendance history for the class is purged, and
// the class drops back to untrained. The person delete is best effort; an
// orphaned person in the group only wastes space.
func (s *EnrollmentService) Unenroll(ctx context.Context, classID, studentID string) error {
	enrollment, err := s.repo.FindByClassAndStudent(ctx, classID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if enrollment.PersonID != "" {
		if err := s.recognizer.DeletePerson(ctx, classID, enrollment.PersonID); err != nil {
			s.logger.Warn("person delete failed during unenroll",
				zap.String("class_id", classID),
				zap.String("person_id", enrollment.PersonID),
				zap.Error(err))
		}
	}

	if err := s.repo.DeleteWithAttendance(ctx, classID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}

	if err := s.classes.UpdateTrainingStatus(ctx, classID, models.TrainingStatusUntrained, ""); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset training status")
	}
	return nil
}
