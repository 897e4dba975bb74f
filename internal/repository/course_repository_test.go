package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/models"
	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

var courseRowColumns = []string{"id", "code", "name", "professor", "assistant", "day", "start_time", "end_time", "is_active", "created_at"}

func TestCourseRepositoryFindActiveByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM courses WHERE code = $1 AND is_active`)).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).
			AddRow("course-1", "CS101", "Data Structures", "Prof. Park", "", "tuesday", "13:00", "14:30", true, time.Now().UTC()))

	course, err := repo.FindActiveByCode(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Equal(t, "course-1", course.ID)
	assert.Equal(t, models.Tuesday, course.Day)
	assert.Equal(t, "13:00-14:30", course.TimeSlot())
}

func TestCourseRepositoryFindActiveByCodeMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM courses WHERE code = $1`)).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows(courseRowColumns))

	_, err := repo.FindActiveByCode(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestCourseRepositoryListActiveByDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM courses WHERE is_active AND day = $1 ORDER BY CASE day`)).
		WithArgs("friday").
		WillReturnRows(sqlmock.NewRows(courseRowColumns).
			AddRow("course-2", "MA201", "Linear Algebra", "Prof. Choi", "TA Yoon", "friday", "10:00", "11:30", true, time.Now().UTC()))

	courses, err := repo.ListActive(context.Background(), models.CourseFilter{Day: models.Friday})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "TA Yoon", courses[0].Assistant)
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO courses`)).
		WithArgs(sqlmock.AnyArg(), "CS101", "Data Structures", "Prof. Park", "", "monday", "09:00", "10:30", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{Code: "CS101", Name: "Data Structures", Professor: "Prof. Park", Day: models.Monday, StartTime: "09:00", EndTime: "10:30"}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.True(t, course.Active)
}

func TestCourseRepositoryCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO courses`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "courses_active_code_key"})

	err := repo.Create(context.Background(), &models.Course{Code: "CS101", Day: models.Monday})
	assert.True(t, errors.Is(err, appErrors.ErrConstraintViolation))
	assert.Contains(t, err.Error(), "courses_active_code_key")
}

func TestCourseRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE courses SET is_active = FALSE WHERE code = $1 AND is_active`)).
		WithArgs("CS101").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE courses SET is_active = FALSE`)).
		WithArgs("CS101").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Deactivate(context.Background(), "CS101"))
	assert.True(t, errors.Is(repo.Deactivate(context.Background(), "CS101"), sql.ErrNoRows))
}
