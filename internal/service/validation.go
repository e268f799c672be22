package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
)

var (
	entityNamePattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._&'()-]{0,99}$`)
	clockPattern        = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
)

// NewValidator returns a validator carrying the domain tags. Field names in
// messages use the json tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("entity_name", func(fl validator.FieldLevel) bool {
		return entityNamePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		switch models.AttendanceStatus(strings.ToLower(fl.Field().String())) {
		case models.AttendancePresent, models.AttendanceAbsent, models.AttendanceLate:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := parseWeekday(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
		return validAcademicYear(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRole(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		switch models.PaymentMethod(strings.ToLower(fl.Field().String())) {
		case models.PaymentCash, models.PaymentCard, models.PaymentBankTransfer, models.PaymentOnline, models.PaymentCheque:
			return true
		}
		return false
	})
	return v
}

// validateStruct runs v and converts failures into a 400 listing the offending fields.
func validateStruct(v *validator.Validate, payload interface{}, context string) error {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+context+" payload")
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, describeFieldError(fe))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
		fmt.Sprintf("invalid %s payload: %s", context, strings.Join(parts, "; ")))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "entity_name":
		return fe.Field() + " contains unsupported characters"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

func parseWeekday(raw string) (models.Weekday, bool) {
	switch d := models.Weekday(strings.ToLower(strings.TrimSpace(raw))); d {
	case models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday, models.Saturday, models.Sunday:
		return d, true
	}
	return "", false
}

func validAcademicYear(raw string) bool {
	m := academicYearPattern.FindStringSubmatch(raw)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}
