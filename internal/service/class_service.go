package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniwatch/uniwatch-api/internal/models"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Class, error)
	ExistsIdentity(ctx context.Context, name string, number int, section string, semester models.Semester, year int, teacherID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	UpdateTrainingStatus(ctx context.Context, id string, status, expect models.TrainingStatus) error
	Delete(ctx context.Context, id string) error
}

type groupRegistry interface {
	CreateGroup(ctx context.Context, groupID, name string) error
	DeleteGroup(ctx context.Context, groupID string) error
}

type trainingScheduler interface {
	Schedule(classID string) error
}

// CreateClassRequest describes class creation payload.
type CreateClassRequest struct {
	Name     string          `json:"name" validate:"required"`
	Number   int             `json:"number" validate:"required,min=1"`
	Section  string          `json:"section" validate:"required"`
	Semester models.Semester `json:"semester" validate:"required"`
	Year     int             `json:"year" validate:"required,min=2000"`
}

// ClassService manages classes and their recognition groups.
type ClassService struct {
	repo       classRepository
	roster     rosterLister
	recognizer groupRegistry
	trainer    trainingScheduler
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, roster rosterLister, recognizer groupRegistry, trainer trainingScheduler, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, roster: roster, recognizer: recognizer, trainer: trainer, validator: validate, logger: logger}
}

// Create registers a new class for the teacher and provisions its person
// group with the recognition service. A class is identified by
// (name, number, section, semester, year, teacher); duplicates conflict.
func (s *ClassService) Create(ctx context.Context, teacherID string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if !req.Semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid semester")
	}

	exists, err := s.repo.ExistsIdentity(ctx, req.Name, req.Number, req.Section, req.Semester, req.Year, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class identity")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already exists")
	}

	class := &models.Class{
		Name:           req.Name,
		Number:         req.Number,
		Section:        req.Section,
		Semester:       req.Semester,
		Year:           req.Year,
		TeacherID:      teacherID,
		TrainingStatus: models.TrainingStatusUntrained,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	groupName := fmt.Sprintf("%s %d-%s %s %d", class.Name, class.Number, class.Section, class.Semester, class.Year)
	if err := s.recognizer.CreateGroup(ctx, class.ID, groupName); err != nil {
		if delErr := s.repo.Delete(ctx, class.ID); delErr != nil {
			s.logger.Error("class cleanup failed after group create error",
				zap.String("class_id", class.ID),
				zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrService.Code, appErrors.ErrService.Status, "failed to provision recognition group")
	}
	return class, nil
}

// Get returns a class with teacher info.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// ListForTeacher returns the classes a teacher owns.
func (s *ClassService) ListForTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	classes, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// ListForStudent returns the classes a student is enrolled in.
func (s *ClassService) ListForStudent(ctx context.Context, studentID string) ([]models.Class, error) {
	classes, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Train kicks off recognizer training for the class roster. The class sits
// in the training state until the background worker observes a terminal
// result from the recognition service.
func (s *ClassService) Train(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.TrainingStatus == models.TrainingStatusTraining {
		return nil, appErrors.Clone(appErrors.ErrConflict, "training already in progress")
	}

	roster, err := s.roster.ListByClass(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(roster) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class has no enrolled students")
	}

	if err := s.repo.UpdateTrainingStatus(ctx, id, models.TrainingStatusTraining, ""); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update training status")
	}
	if err := s.trainer.Schedule(id); err != nil {
		if revertErr := s.repo.UpdateTrainingStatus(ctx, id, models.TrainingStatusUntrained, models.TrainingStatusTraining); revertErr != nil {
			s.logger.Error("training status revert failed",
				zap.String("class_id", id),
				zap.Error(revertErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule training")
	}

	class.TrainingStatus = models.TrainingStatusTraining
	return class, nil
}

// Delete removes a class with all its lectures, images, attendance rows and
// enrollments, then drops the recognition group best effort.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if err := s.recognizer.DeleteGroup(ctx, id); err != nil {
		s.logger.Warn("recognition group delete failed",
			zap.String("class_id", id),
			zap.Error(err))
	}
	return nil
}
