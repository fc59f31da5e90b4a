package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniwatch/uniwatch-api/internal/models"
)

// UserRepository handles persistence of user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, role, first_name, last_name, phone, active, created_at, updated_at`

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user by email. Emails are stored lowercased.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListStudents returns active students matching the optional search term,
// paginated, together with the total count.
func (r *UserRepository) ListStudents(ctx context.Context, search string, page, pageSize int) ([]models.User, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	pattern := "%" + search + "%"

	var total int
	const countQuery = `SELECT count(*) FROM users
        WHERE role = $1 AND active AND (first_name || ' ' || last_name ILIKE $2 OR email ILIKE $2)`
	if err := r.db.GetContext(ctx, &total, countQuery, models.RoleStudent, pattern); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	const listQuery = `SELECT ` + userColumns + ` FROM users
        WHERE role = $1 AND active AND (first_name || ' ' || last_name ILIKE $2 OR email ILIKE $2)
        ORDER BY last_name, first_name LIMIT $3 OFFSET $4`
	var students []models.User
	if err := r.db.SelectContext(ctx, &students, listQuery, models.RoleStudent, pattern, pageSize, (page-1)*pageSize); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	return students, total, nil
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, password_hash, role, first_name, last_name, phone, active, created_at, updated_at)
        VALUES (:id, lower(:email), :password_hash, :role, :first_name, :last_name, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update persists mutable profile fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET first_name = :first_name, last_name = :last_name, phone = :phone,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
