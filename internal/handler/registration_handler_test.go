package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

type enrollmentServiceMock struct {
	registerResp *models.Registration
	registerErr  error
	cancelResp   *models.Registration
	cancelErr    error
	registered   bool
	lastUserID   int64
	lastCode     string
}

func (m *enrollmentServiceMock) Register(ctx context.Context, userID int64, courseCode string) (*models.Registration, error) {
	m.lastUserID, m.lastCode = userID, courseCode
	return m.registerResp, m.registerErr
}

func (m *enrollmentServiceMock) Cancel(ctx context.Context, userID int64, courseCode string) (*models.Registration, error) {
	m.lastUserID, m.lastCode = userID, courseCode
	return m.cancelResp, m.cancelErr
}

func (m *enrollmentServiceMock) IsRegistered(ctx context.Context, userID int64, courseCode string) (bool, error) {
	m.lastUserID, m.lastCode = userID, courseCode
	return m.registered, nil
}

type userRegistrationsMock struct {
	details []models.EnrollmentDetail
	userID  int64
}

func (m *userRegistrationsMock) RegistrationsFor(ctx context.Context, userID int64) ([]models.EnrollmentDetail, error) {
	m.userID = userID
	return m.details, nil
}

func studentContext(w *httptest.ResponseRecorder, req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Session: models.Session{UserID: 7, StudentID: "A12345"}})
	return c
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
	Meta  map[string]any   `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRegistrationHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &enrollmentServiceMock{registerResp: &models.Registration{ID: "reg-1", Active: true}}
	handler := NewRegistrationHandler(svc, &userRegistrationsMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString(`{"course_code":"CS101"}`))
	req.Header.Set("Content-Type", "application/json")
	c := studentContext(w, req)

	handler.Register(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(7), svc.lastUserID)
	assert.Equal(t, "CS101", svc.lastCode)
}

func TestRegistrationHandlerRegisterConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &enrollmentServiceMock{registerErr: appErrors.Clone(appErrors.ErrAlreadyRegistered, "")}
	handler := NewRegistrationHandler(svc, &userRegistrationsMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString(`{"course_code":"CS101"}`))
	req.Header.Set("Content-Type", "application/json")
	c := studentContext(w, req)

	handler.Register(c)
	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrAlreadyRegistered.Code, env.Error.Code)
}

func TestRegistrationHandlerRegisterInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &enrollmentServiceMock{}
	handler := NewRegistrationHandler(svc, &userRegistrationsMock{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c := studentContext(w, req)

	handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastCode)
}

func TestRegistrationHandlerRequiresSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRegistrationHandler(&enrollmentServiceMock{}, &userRegistrationsMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/me/registrations", nil)

	handler.Mine(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistrationHandlerCancelAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &enrollmentServiceMock{
		cancelErr:  appErrors.Clone(appErrors.ErrNotRegistered, ""),
		registered: true,
	}
	handler := NewRegistrationHandler(svc, &userRegistrationsMock{})

	w := httptest.NewRecorder()
	c := studentContext(w, httptest.NewRequest(http.MethodDelete, "/registrations/CS101", nil))
	c.Params = gin.Params{{Key: "code", Value: "CS101"}}
	handler.Cancel(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CS101", svc.lastCode)

	w = httptest.NewRecorder()
	c = studentContext(w, httptest.NewRequest(http.MethodGet, "/registrations/CS102/status", nil))
	c.Params = gin.Params{{Key: "code", Value: "CS102"}}
	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		CourseCode string `json:"course_code"`
		Registered bool   `json:"registered"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &status))
	assert.Equal(t, "CS102", status.CourseCode)
	assert.True(t, status.Registered)
}

func TestRegistrationHandlerMine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	views := &userRegistrationsMock{details: []models.EnrollmentDetail{{CourseCode: "CS101"}, {CourseCode: "CS102"}}}
	handler := NewRegistrationHandler(&enrollmentServiceMock{}, views)

	w := httptest.NewRecorder()
	c := studentContext(w, httptest.NewRequest(http.MethodGet, "/me/registrations", nil))
	handler.Mine(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), views.userID)
	assert.EqualValues(t, 2, decodeEnvelope(t, w).Meta["total"])
}
