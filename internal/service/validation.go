package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/course-registration-api/internal/models"
)

var (
	studentIDPattern = regexp.MustCompile(`^[A-Za-z]\d{5}$`)
	clockPattern     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// registerValidations adds the domain rules used by request structs. It is
// safe to call repeatedly on one validator.
func registerValidations(v *validator.Validate) {
	_ = v.RegisterValidation("studentid", func(fl validator.FieldLevel) bool {
		return studentIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := models.ParseWeekday(fl.Field().String())
		return err == nil
	})
}
