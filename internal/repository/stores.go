package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registration-api/internal/models"
)

// UserStore persists accounts.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePhone(ctx context.Context, id int64, phone string) error
	ListWithPhone(ctx context.Context) ([]models.PhoneRecord, error)
}

// CourseStore persists the timetable.
type CourseStore interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListActive(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, code string) error
}

// RegistrationStore persists registrations and serves their read views.
type RegistrationStore interface {
	WithPair(ctx context.Context, userID int64, courseID string, fn PairFunc) error
	IsActive(ctx context.Context, userID int64, courseCode string) (bool, error)
	CountRows(ctx context.Context, userID int64, courseID string) (int, error)
	ListActiveByCourseCode(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error)
	CountActiveByCourseCode(ctx context.Context, courseCode string) (int, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error)
	ListActive(ctx context.Context) ([]models.EnrollmentDetail, error)
	History(ctx context.Context, filter models.HistoryFilter) ([]models.EnrollmentDetail, error)
}

// Stores bundles one backend's repositories.
type Stores struct {
	Users         UserStore
	Courses       CourseStore
	Registrations RegistrationStore
}

// NewPostgresStores builds the repositories on db.
func NewPostgresStores(db *sqlx.DB) Stores {
	return Stores{
		Users:         NewUserRepository(db),
		Courses:       NewCourseRepository(db),
		Registrations: NewRegistrationRepository(db),
	}
}

// Stores exposes the memory store through the same repository set.
func (m *MemoryStore) Stores() Stores {
	return Stores{
		Users:         m.Users(),
		Courses:       m.Courses(),
		Registrations: m.Registrations(),
	}
}
