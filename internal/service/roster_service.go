package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
	"github.com/noah-isme/course-registration-api/pkg/export"
)

type registrationViews interface {
	ListActiveByCourseCode(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error)
	CountActiveByCourseCode(ctx context.Context, courseCode string) (int, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error)
	ListActive(ctx context.Context) ([]models.EnrollmentDetail, error)
	History(ctx context.Context, filter models.HistoryFilter) ([]models.EnrollmentDetail, error)
}

type phoneRevealer interface {
	DecryptPhone(stored string) PhoneValue
}

// RosterExport is a rendered roster file.
type RosterExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

var rosterHeaders = []string{"student_id", "name", "phone", "registered_at", "course_code", "course_name", "professor", "day", "time_slot"}

// RosterService serves the read side of enrollment: rosters, counts, per-user
// and global listings, and history.
type RosterService struct {
	views  registrationViews
	phones phoneRevealer
	logger *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(views registrationViews, phones phoneRevealer, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{views: views, phones: phones, logger: logger}
}

// RosterFor lists active registrations of the active course with courseCode
// in registration order. Unknown or retired codes give an empty roster.
func (s *RosterService) RosterFor(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	details, err := s.views.ListActiveByCourseCode(ctx, strings.TrimSpace(courseCode))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return s.decorate(details), nil
}

// EnrollmentCountFor counts what RosterFor returns.
func (s *RosterService) EnrollmentCountFor(ctx context.Context, courseCode string) (int, error) {
	total, err := s.views.CountActiveByCourseCode(ctx, strings.TrimSpace(courseCode))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}
	return total, nil
}

// RegistrationsFor lists a user's active registrations by course code,
// including courses retired since.
func (s *RosterService) RegistrationsFor(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error) {
	details, err := s.views.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
	}
	return s.decorate(details), nil
}

// AllActiveRegistrations lists every active registration by course code, then time.
func (s *RosterService) AllActiveRegistrations(ctx context.Context) ([]models.EnrollmentDetail, error) {
	details, err := s.views.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
	}
	return s.decorate(details), nil
}

// History lists registrations including cancelled ones, newest first.
func (s *RosterService) History(ctx context.Context, filter models.HistoryFilter) ([]models.EnrollmentDetail, error) {
	filter.CourseCode = strings.TrimSpace(filter.CourseCode)
	details, err := s.views.History(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration history")
	}
	return s.decorate(details), nil
}

// ExportRoster renders the roster of courseCode as CSV or PDF.
func (s *RosterService) ExportRoster(ctx context.Context, courseCode string, format export.Format) (*RosterExport, error) {
	details, err := s.RosterFor(ctx, courseCode)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(details))}
	for _, d := range details {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student_id":    d.StudentID,
			"name":          d.UserName,
			"phone":         d.Phone,
			"registered_at": d.RegisteredAt.Format(time.RFC3339),
			"course_code":   d.CourseCode,
			"course_name":   d.CourseName,
			"professor":     d.Professor,
			"day":           string(d.Day),
			"time_slot":     d.TimeSlot,
		})
	}

	code := strings.TrimSpace(courseCode)
	body, err := export.Render(format, dataset, code+" roster")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return &RosterExport{
		Filename:    format.Filename("roster-" + code),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *RosterService) decorate(details []models.EnrollmentDetail) []models.EnrollmentDetail {
	for i := range details {
		phone := s.phones.DecryptPhone(details[i].Phone)
		details[i].Phone = phone.Display()
		details[i].PhoneUnavailable = phone.Unavailable
		details[i].TimeSlot = details[i].StartTime + "-" + details[i].EndTime
	}
	return details
}
