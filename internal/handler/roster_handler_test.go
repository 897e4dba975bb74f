package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/pkg/export"
)

type rosterServiceMock struct {
	details      []models.EnrollmentDetail
	count        int
	lastCode     string
	lastFilter   models.HistoryFilter
	lastFormat   export.Format
	historyCalls int
}

func (m *rosterServiceMock) RosterFor(ctx context.Context, courseCode string) ([]models.EnrollmentDetail, error) {
	m.lastCode = courseCode
	return m.details, nil
}

func (m *rosterServiceMock) EnrollmentCountFor(ctx context.Context, courseCode string) (int, error) {
	m.lastCode = courseCode
	return m.count, nil
}

func (m *rosterServiceMock) AllActiveRegistrations(ctx context.Context) ([]models.EnrollmentDetail, error) {
	return m.details, nil
}

func (m *rosterServiceMock) History(ctx context.Context, filter models.HistoryFilter) ([]models.EnrollmentDetail, error) {
	m.historyCalls++
	m.lastFilter = filter
	return m.details, nil
}

func (m *rosterServiceMock) ExportRoster(ctx context.Context, courseCode string, format export.Format) (*service.RosterExport, error) {
	m.lastCode = courseCode
	m.lastFormat = format
	return &service.RosterExport{Filename: "roster-" + courseCode + ".csv", ContentType: format.ContentType(), Body: []byte("student_id\n")}, nil
}

func TestRosterHandlerHistoryFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &rosterServiceMock{}
	handler := NewRosterHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/registrations/history?course=CS101&userId=9", nil)
	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.HistoryFilter{CourseCode: "CS101", UserID: 9}, svc.lastFilter)
}

func TestRosterHandlerHistoryInvalidUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &rosterServiceMock{}
	handler := NewRosterHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/registrations/history?userId=abc", nil)
	handler.History(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.historyCalls)
}

func TestRosterHandlerCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &rosterServiceMock{count: 3}
	handler := NewRosterHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/courses/CS101/count", nil)
	c.Params = gin.Params{{Key: "code", Value: "CS101"}}
	handler.Count(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)
	assert.Equal(t, "CS101", svc.lastCode)
}

func TestRosterHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &rosterServiceMock{}
	handler := NewRosterHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/courses/CS101/roster/export", nil)
	c.Params = gin.Params{{Key: "code", Value: "CS101"}}
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV, svc.lastFormat)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "roster-CS101.csv")
	assert.Equal(t, "student_id\n", w.Body.String())
}

func TestRosterHandlerExportRejectsFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &rosterServiceMock{}
	handler := NewRosterHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/courses/CS101/roster/export?format=xlsx", nil)
	c.Params = gin.Params{{Key: "code", Value: "CS101"}}
	handler.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastCode)
}
