// Package validation checks request parameters against their validate tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator satisfies echo.Validator.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: validate}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Describe renders validation failures as "field: tag" pairs. ok is false
// when err carries no validation failures.
func Describe(err error) (message string, ok bool) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return "", false
	}
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return "invalid " + strings.Join(parts, ", "), true
}

// Failed reports whether validation of field (by json name) failed.
func Failed(err error, field string) bool {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return false
	}
	for _, fe := range errs {
		if fe.Field() == field {
			return true
		}
	}
	return false
}
