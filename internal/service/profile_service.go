package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/pkg/config"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
	"github.com/uniwatch/uniwatch-api/pkg/storage"
)

type profileRepository interface {
	FindDetailByStudent(ctx context.Context, studentID string) (*models.FacialProfileDetail, error)
	EnsureForStudent(ctx context.Context, studentID string) (*models.FacialProfile, error)
	AddImage(ctx context.Context, profileID string, image *models.UploadedImage) error
	FindImage(ctx context.Context, profileID, imageID string) (*models.UploadedImage, error)
	RemoveImage(ctx context.Context, profileID, imageID string) error
}

// ProfileService manages the face images a student keeps on file for
// enrollment. Changing the profile does not touch faces already registered
// with a class group; those follow the enrollment lifecycle.
type ProfileService struct {
	repo    profileRepository
	users   userReader
	blobs   storage.Store
	uploads config.UploadsConfig
	logger  *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(repo profileRepository, users userReader, blobs storage.Store, uploads config.UploadsConfig, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, users: users, blobs: blobs, uploads: uploads, logger: logger}
}

// Get returns the student's facial profile with its images.
func (s *ProfileService) Get(ctx context.Context, studentID string) (*models.FacialProfileDetail, error) {
	detail, err := s.repo.FindDetailByStudent(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "facial profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load facial profile")
	}
	return detail, nil
}

// AddImage uploads one face image and attaches it to the student's profile,
// creating the profile on first use.
func (s *ProfileService) AddImage(ctx context.Context, studentID string, upload ImageUpload) (*models.FacialProfileDetail, error) {
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
	if err := validateUploads([]ImageUpload{upload}, s.uploads); err != nil {
		return nil, err
	}

	profile, err := s.repo.EnsureForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open facial profile")
	}

	blob, err := s.blobs.Put(ctx, upload.Data, upload.Filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrService.Code, appErrors.ErrService.Status, "failed to store image")
	}
	image := &models.UploadedImage{BlobName: blob.Name, URL: blob.URL}
	if err := s.repo.AddImage(ctx, profile.ID, image); err != nil {
		if delErr := s.blobs.Delete(ctx, blob.Name); delErr != nil {
			s.logger.Warn("blob cleanup failed after profile image error",
				zap.String("blob", blob.Name),
				zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach profile image")
	}

	return s.Get(ctx, studentID)
}

// RemoveImage detaches an image from the student's profile and deletes the
// blob best effort.
func (s *ProfileService) RemoveImage(ctx context.Context, studentID, imageID string) error {
	detail, err := s.repo.FindDetailByStudent(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "facial profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load facial profile")
	}
	image, err := s.repo.FindImage(ctx, detail.ID, imageID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "profile image not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile image")
	}
	if err := s.repo.RemoveImage(ctx, detail.ID, imageID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove profile image")
	}
	if err := s.blobs.Delete(ctx, image.BlobName); err != nil {
		s.logger.Warn("profile image blob delete failed",
			zap.String("blob", image.BlobName),
			zap.Error(err))
	}
	return nil
}
