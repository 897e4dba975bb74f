package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

const courseColumns = `id, code, name, professor, COALESCE(assistant, '') AS assistant, day, start_time, end_time, is_active, created_at`

const courseDayOrder = `CASE day WHEN 'monday' THEN 0 WHEN 'tuesday' THEN 1 WHEN 'wednesday' THEN 2
        WHEN 'thursday' THEN 3 WHEN 'friday' THEN 4 WHEN 'saturday' THEN 5 END`

// CourseRepository provides database access for timetable sections.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindActiveByCode resolves a code against active courses only.
func (r *CourseRepository) FindActiveByCode(ctx context.Context, code string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE code = $1 AND is_active LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by code: %w", err)
	}
	return &course, nil
}

// FindByID returns a course whatever its active flag.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// ListActive returns the student-facing timetable ordered by day and start time.
func (r *CourseRepository) ListActive(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE is_active`
	var args []interface{}
	if filter.Day != "" {
		query += " AND day = $1"
		args = append(args, string(filter.Day))
	}
	query += " ORDER BY " + courseDayOrder + ", start_time ASC, code ASC"

	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts an active course. A duplicate active code is a ConstraintViolation.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	course.Active = true
	const query = `INSERT INTO courses (id, code, name, professor, assistant, day, start_time, end_time, is_active, created_at)
        VALUES (:id, :code, :name, :professor, NULLIF(:assistant, ''), :day, :start_time, :end_time, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return mapWriteError("create course", err)
	}
	return nil
}

// Deactivate retires the active course with code. Its registrations stay.
// The row update waits for pair transactions holding the course share lock.
func (r *CourseRepository) Deactivate(ctx context.Context, code string) error {
	const query = `UPDATE courses SET is_active = FALSE WHERE code = $1 AND is_active`
	res, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
