package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const userColumns = `id, student_id, name, batch, is_admin, COALESCE(phone, '') AS phone, password_hash, created_at`

// UserRepository provides database access for accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByStudentID returns a user by student identifier.
func (r *UserRepository) FindByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE student_id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by student id: %w", err)
	}
	return &user, nil
}

// Create inserts a user and fills in its generated id.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO users (student_id, name, batch, is_admin, phone, password_hash, created_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, user.StudentID, user.Name, user.Batch, user.IsAdmin, user.Phone, user.PasswordHash, user.CreatedAt).Scan(&user.ID); err != nil {
		return mapWriteError("create user", err)
	}
	return nil
}

// UpdatePhone overwrites the stored phone value.
func (r *UserRepository) UpdatePhone(ctx context.Context, id int64, phone string) error {
	const query = `UPDATE users SET phone = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, phone)
	if err != nil {
		return fmt.Errorf("update phone: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update phone rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListWithPhone returns every user with a non-empty phone value.
func (r *UserRepository) ListWithPhone(ctx context.Context) ([]models.PhoneRecord, error) {
	const query = `SELECT id, name, phone FROM users WHERE phone IS NOT NULL AND phone <> '' ORDER BY id`
	records := []models.PhoneRecord{}
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list user phones: %w", err)
	}
	return records, nil
}
