package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

type courseRepository interface {
	ListActive(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, code string) error
}

// CreateCourseRequest describes a new timetable section.
type CreateCourseRequest struct {
	Code      string `json:"code" validate:"required,max=32"`
	Name      string `json:"name" validate:"required,max=160"`
	Professor string `json:"professor" validate:"required,max=120"`
	Assistant string `json:"assistant" validate:"omitempty,max=120"`
	Day       string `json:"day" validate:"required,weekday"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

// CourseService manages the timetable.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidations(validate)
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// ListActive returns the active timetable, optionally for one day.
func (s *CourseService) ListActive(ctx context.Context, day string) ([]models.Course, error) {
	filter := models.CourseFilter{}
	if strings.TrimSpace(day) != "" {
		parsed, err := models.ParseWeekday(day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day")
		}
		filter.Day = parsed
	}
	courses, err := s.repo.ListActive(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Create adds an active course. Codes are unique among active courses.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	req.Code = strings.TrimSpace(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.EndTime <= req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	day, _ := models.ParseWeekday(req.Day)
	course := &models.Course{
		Code:      req.Code,
		Name:      strings.TrimSpace(req.Name),
		Professor: strings.TrimSpace(req.Professor),
		Assistant: strings.TrimSpace(req.Assistant),
		Day:       day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, appErrors.ErrConstraintViolation) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_code", course.Code), zap.String("course_id", course.ID))
	return course, nil
}

// Deactivate retires the active course with code. Existing registrations are
// kept and drop out of the course roster.
func (s *CourseService) Deactivate(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if err := s.repo.Deactivate(ctx, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrCourseNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	s.logger.Info("course deactivated", zap.String("course_code", code))
	return nil
}
