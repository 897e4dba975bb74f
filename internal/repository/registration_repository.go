package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// PairTx is the view of a single (user, course) pair inside a write
// transaction. Current returns nil when the pair has no row yet. LockCourse
// holds the course against deactivation until the transaction ends and
// reports whether it is still active.
type PairTx interface {
	LockCourse() (bool, error)
	Current() (*models.Registration, error)
	Insert(reg *models.Registration) error
	Update(reg *models.Registration) error
}

// PairFunc runs inside the pair transaction. Returning an error aborts the
// transaction and is handed back to the caller unchanged.
type PairFunc func(tx PairTx) error

const registrationColumns = `id, user_id, course_id, is_active, registered_at, cancelled_at`

const enrollmentDetailSelect = `SELECT r.id AS registration_id, r.registered_at, r.cancelled_at, r.is_active,
        u.id AS user_id, u.student_id, u.name AS user_name, COALESCE(u.phone, '') AS phone,
        c.id AS course_id, c.code AS course_code, c.name AS course_name, c.professor,
        COALESCE(c.assistant, '') AS assistant, c.day, c.start_time, c.end_time
        FROM registrations r
        JOIN users u ON u.id = r.user_id
        JOIN courses c ON c.id = r.course_id`

// RegistrationRepository persists registrations in PostgreSQL.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// WithPair runs fn in a transaction that holds an advisory lock for the
// pair and a row lock on its registration, so check-then-write is atomic.
func (r *RegistrationRepository) WithPair(ctx context.Context, userID int64, courseID string, fn PairFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "registration:"+models.PairKey(userID, courseID)); err != nil {
		return fmt.Errorf("lock registration pair: %w", err)
	}

	if err = fn(&pgPairTx{ctx: ctx, tx: tx, userID: userID, courseID: courseID}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return mapWriteError("commit registration", err)
	}
	return nil
}

type pgPairTx struct {
	ctx      context.Context
	tx       *sqlx.Tx
	userID   int64
	courseID string
}

// LockCourse takes a share lock on the course row. Deactivate updates the
// same row, so the two wait on each other.
func (p *pgPairTx) LockCourse() (bool, error) {
	var active bool
	if err := p.tx.GetContext(p.ctx, &active, `SELECT is_active FROM courses WHERE id = $1 FOR SHARE`, p.courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lock course: %w", err)
	}
	return active, nil
}

func (p *pgPairTx) Current() (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 AND course_id = $2 FOR UPDATE`
	var reg models.Registration
	if err := p.tx.GetContext(p.ctx, &reg, query, p.userID, p.courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load registration: %w", err)
	}
	return &reg, nil
}

func (p *pgPairTx) Insert(reg *models.Registration) error {
	if reg.UserID != p.userID || reg.CourseID != p.courseID {
		return constraintViolation("registration outside locked pair", nil)
	}
	const query = `INSERT INTO registrations (id, user_id, course_id, is_active, registered_at, cancelled_at)
        VALUES (:id, :user_id, :course_id, :is_active, :registered_at, :cancelled_at)`
	if _, err := p.tx.NamedExecContext(p.ctx, query, reg); err != nil {
		return mapWriteError("create registration", err)
	}
	return nil
}

func (p *pgPairTx) Update(reg *models.Registration) error {
	const query = `UPDATE registrations SET is_active = $2, registered_at = $3, cancelled_at = $4
        WHERE id = $1 AND user_id = $5 AND course_id = $6`
	res, err := p.tx.ExecContext(p.ctx, query, reg.ID, reg.Active, reg.RegisteredAt, reg.CancelledAt, p.userID, p.courseID)
	if err != nil {
		return mapWriteError("update registration", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration rows: %w", err)
	}
	if affected != 1 {
		return constraintViolation(fmt.Sprintf("update registration %s touched %d rows", reg.ID, affected), nil)
	}
	return nil
}

// IsActive reports whether the user holds an active registration for the
// active course carrying code.
func (r *RegistrationRepository) IsActive(ctx context.Context, userID int64, courseCode string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM registrations r JOIN courses c ON c.id = r.course_id
        WHERE r.user_id = $1 AND c.code = $2 AND c.is_active AND r.is_active)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, courseCode); err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return exists, nil
}

// ListActiveByCourseCode returns the roster of the active course with code.
func (r *RegistrationRepository) ListActiveByCourseCode(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE r.is_active AND c.is_active AND c.code = $1 ORDER BY r.registered_at ASC, r.id ASC`
	details := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &details, query, courseCode); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return details, nil
}

// CountActiveByCourseCode counts the rows ListActiveByCourseCode returns.
func (r *RegistrationRepository) CountActiveByCourseCode(ctx context.Context, courseCode string) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations r JOIN courses c ON c.id = r.course_id
        WHERE r.is_active AND c.is_active AND c.code = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseCode); err != nil {
		return 0, fmt.Errorf("count course roster: %w", err)
	}
	return total, nil
}

// ListActiveByUser returns a user's active registrations by course code.
func (r *RegistrationRepository) ListActiveByUser(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE r.is_active AND r.user_id = $1 ORDER BY c.code ASC, r.registered_at ASC`
	details := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &details, query, userID); err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	return details, nil
}

// ListActive returns every active registration.
func (r *RegistrationRepository) ListActive(ctx context.Context) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE r.is_active ORDER BY c.code ASC, r.registered_at ASC`
	details := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &details, query); err != nil {
		return nil, fmt.Errorf("list active registrations: %w", err)
	}
	return details, nil
}

// History returns registrations including cancelled ones, newest first.
func (r *RegistrationRepository) History(ctx context.Context, filter models.HistoryFilter) ([]models.EnrollmentDetail, error) {
	var conditions []string
	var args []interface{}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("c.code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	if filter.UserID != 0 {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	query := enrollmentDetailSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.registered_at DESC, r.id ASC"

	details := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list registration history: %w", err)
	}
	return details, nil
}

// CountRows counts every row stored for a pair, active or not.
func (r *RegistrationRepository) CountRows(ctx context.Context, userID int64, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE user_id = $1 AND course_id = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, courseID); err != nil {
		return 0, fmt.Errorf("count pair rows: %w", err)
	}
	return total, nil
}
