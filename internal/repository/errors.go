package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/course-registration-api/pkg/errors"
)

const pqUniqueViolation = "23505"

// ErrCourseInactive is returned by a pair commit when the locked course was
// retired before the writes were applied.
var ErrCourseInactive = errors.New("course is not active")

// mapWriteError turns unique violations into ConstraintViolation and wraps
// everything else with the operation name.
func mapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return constraintViolation(fmt.Sprintf("%s: %s", op, pqErr.Constraint), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func constraintViolation(detail string, cause error) error {
	if cause == nil {
		cause = errors.New(detail)
	}
	return appErrors.Wrap(cause, appErrors.ErrConstraintViolation.Code, appErrors.ErrConstraintViolation.Status, appErrors.ErrConstraintViolation.Message+": "+detail)
}
