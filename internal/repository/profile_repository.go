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

// ProfileRepository handles persistence of facial profiles and their images.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByStudent returns the student's profile, or sql.ErrNoRows when the
// student has never uploaded a face image.
func (r *ProfileRepository) FindByStudent(ctx context.Context, studentID string) (*models.FacialProfile, error) {
	const query = `SELECT id, student_id, created_at FROM facial_profiles WHERE student_id = $1`
	var profile models.FacialProfile
	if err := r.db.GetContext(ctx, &profile, query, studentID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindDetailByStudent returns the student's profile with its images.
func (r *ProfileRepository) FindDetailByStudent(ctx context.Context, studentID string) (*models.FacialProfileDetail, error) {
	profile, err := r.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	detail := &models.FacialProfileDetail{FacialProfile: *profile}

	const imagesQuery = `SELECT id, blob_name, url, created_at FROM facial_profile_images
        WHERE profile_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &detail.Images, imagesQuery, profile.ID); err != nil {
		return nil, fmt.Errorf("load profile images: %w", err)
	}
	return detail, nil
}

// EnsureForStudent returns the student's profile, creating an empty one on
// first use.
func (r *ProfileRepository) EnsureForStudent(ctx context.Context, studentID string) (*models.FacialProfile, error) {
	profile, err := r.FindByStudent(ctx, studentID)
	if err == nil {
		return profile, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find profile: %w", err)
	}

	profile = &models.FacialProfile{
		ID:        uuid.NewString(),
		StudentID: studentID,
		CreatedAt: time.Now().UTC(),
	}
	const query = `INSERT INTO facial_profiles (id, student_id, created_at)
        VALUES (:id, :student_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// AddImage attaches an uploaded image to the profile.
func (r *ProfileRepository) AddImage(ctx context.Context, profileID string, image *models.UploadedImage) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO facial_profile_images (id, profile_id, blob_name, url, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, image.ID, profileID, image.BlobName, image.URL, image.CreatedAt); err != nil {
		return fmt.Errorf("add profile image: %w", err)
	}
	return nil
}

// FindImage returns one profile image by ID, scoped to the profile.
func (r *ProfileRepository) FindImage(ctx context.Context, profileID, imageID string) (*models.UploadedImage, error) {
	const query = `SELECT id, blob_name, url, created_at FROM facial_profile_images
        WHERE profile_id = $1 AND id = $2`
	var image models.UploadedImage
	if err := r.db.GetContext(ctx, &image, query, profileID, imageID); err != nil {
		return nil, err
	}
	return &image, nil
}

// RemoveImage detaches an image from the profile.
func (r *ProfileRepository) RemoveImage(ctx context.Context, profileID, imageID string) error {
	const query = `DELETE FROM facial_profile_images WHERE profile_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, profileID, imageID); err != nil {
		return fmt.Errorf("remove profile image: %w", err)
	}
	return nil
}

// CountImages returns the number of images in the profile.
func (r *ProfileRepository) CountImages(ctx context.Context, profileID string) (int, error) {
	const query = `SELECT count(*) FROM facial_profile_images WHERE profile_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, profileID); err != nil {
		return 0, fmt.Errorf("count profile images: %w", err)
	}
	return count, nil
}
