package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/guard"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/repository"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

const (
	operationRegister = "register"
	operationCancel   = "cancel"
)

type activeCourseFinder interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Course, error)
}

type registrationWriter interface {
	WithPair(ctx context.Context, userID int64, courseID string, fn repository.PairFunc) error
	IsActive(ctx context.Context, userID int64, courseCode string) (bool, error)
}

// EnrollmentService owns the register/cancel lifecycle of (user, course)
// pairs. Writes to one pair run one at a time: the locker is taken first,
// then the store transaction locks the course, confirms it is still active
// and re-reads the row under its own lock.
type EnrollmentService struct {
	courses       activeCourseFinder
	registrations registrationWriter
	locker        guard.Locker
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
}

// NewEnrollmentService constructs EnrollmentService. A nil locker falls back
// to an in-process one.
func NewEnrollmentService(courses activeCourseFinder, registrations registrationWriter, locker guard.Locker, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if locker == nil {
		locker = guard.NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		courses:       courses,
		registrations: registrations,
		locker:        locker,
		metrics:       metrics,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// Register enrolls the user in the active course carrying courseCode. A
// cancelled row for the pair is reactivated instead of inserting a new one.
func (s *EnrollmentService) Register(ctx context.Context, userID int64, courseCode string) (*models.Registration, error) {
	var result *models.Registration
	err := s.mutate(ctx, operationRegister, userID, courseCode, func(tx repository.PairTx, course *models.Course) error {
		current, err := tx.Current()
		if err != nil {
			return err
		}
		now := s.now()
		switch {
		case models.StateOf(current) == models.StateActive:
			return appErrors.Clone(appErrors.ErrAlreadyRegistered, "")
		case current == nil:
			reg := models.NewRegistration(s.newID(), userID, course.ID, now)
			if err := tx.Insert(reg); err != nil {
				return err
			}
			result = reg
		default:
			current.Reactivate(now)
			if err := tx.Update(current); err != nil {
				return err
			}
			result = current
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel ends the user's active registration for the course. The row is kept
// and marked inactive.
func (s *EnrollmentService) Cancel(ctx context.Context, userID int64, courseCode string) (*models.Registration, error) {
	var result *models.Registration
	err := s.mutate(ctx, operationCancel, userID, courseCode, func(tx repository.PairTx, course *models.Course) error {
		current, err := tx.Current()
		if err != nil {
			return err
		}
		if models.StateOf(current) != models.StateActive {
			return appErrors.Clone(appErrors.ErrNotRegistered, "")
		}
		current.Cancel(s.now())
		if err := tx.Update(current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsRegistered reports whether the user holds an active registration for the
// active course carrying courseCode. Unknown codes report false.
func (s *EnrollmentService) IsRegistered(ctx context.Context, userID int64, courseCode string) (bool, error) {
	code := strings.TrimSpace(courseCode)
	if code == "" {
		return false, nil
	}
	ok, err := s.registrations.IsActive(ctx, userID, code)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	return ok, nil
}

type pairMutation func(tx repository.PairTx, course *models.Course) error

func (s *EnrollmentService) mutate(ctx context.Context, op string, userID int64, courseCode string, fn pairMutation) error {
	err := s.runMutation(ctx, op, userID, courseCode, fn)
	s.report(op, userID, courseCode, err)
	return err
}

func (s *EnrollmentService) runMutation(ctx context.Context, op string, userID int64, courseCode string, fn pairMutation) error {
	code := strings.TrimSpace(courseCode)
	if code == "" {
		return appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}

	course, err := s.courses.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrCourseNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, models.PairKey(userID, course.ID))
	s.metrics.ObserveLockWait(op, time.Since(waitStart))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "registration is busy, please retry later")
	}
	defer unlock()

	err = s.registrations.WithPair(ctx, userID, course.ID, func(tx repository.PairTx) error {
		active, err := tx.LockCourse()
		if err != nil {
			return err
		}
		if !active {
			return appErrors.Clone(appErrors.ErrCourseNotFound, "")
		}
		return fn(tx, course)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrCourseInactive) {
		return appErrors.Wrap(err, appErrors.ErrCourseNotFound.Code, appErrors.ErrCourseNotFound.Status, appErrors.ErrCourseNotFound.Message)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save registration")
}

func (s *EnrollmentService) report(op string, userID int64, courseCode string, err error) {
	fields := []zap.Field{zap.String("operation", op), zap.Int64("user_id", userID), zap.String("course_code", courseCode)}
	switch {
	case err == nil:
		s.metrics.RecordEnrollment(op, "ok")
		s.logger.Info("enrollment updated", fields...)
	case appErrors.IsExpected(err):
		s.metrics.RecordEnrollment(op, appErrors.FromError(err).Code)
		s.logger.Debug("enrollment rejected", append(fields, zap.Error(err))...)
	default:
		s.metrics.RecordEnrollment(op, appErrors.FromError(err).Code)
		s.logger.Error("enrollment failed", append(fields, zap.Error(err))...)
	}
}
