package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use; it only caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// check validates an entity struct and reports the first offending field.
func check(e any) error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewValidationError("", "", err)
	}
	fe := fieldErrs[0]
	cause := ErrOutOfRange
	if fe.Tag() == "required" {
		cause = ErrRequired
	}
	return NewValidationError(fe.Field(), fmt.Sprint(fe.Value()), cause)
}

// CheckLimit validates a result-size bound.
func CheckLimit(limit int) error {
	if limit < 0 || limit > MaxLimit {
		return NewValidationError("limit", fmt.Sprint(limit), ErrUnbounded)
	}
	return nil
}

// Result-size bounds.
const (
	DefaultLimit = 100
	MaxLimit     = 10000
	// NoLimit requests an unbounded result; it is always rejected.
	NoLimit = -1
)
