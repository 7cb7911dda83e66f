// Package validation holds the request validator shared by the services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/go-playground/validator/v10"
)

// Sectors is the fixed set of organizational sectors.
var Sectors = []string{"legal", "psychology", "social-assistance", "administrative"}

func IsSector(s string) bool {
	for _, sector := range Sectors {
		if s == sector {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("sector", func(fl validator.FieldLevel) bool {
		return IsSector(fl.Field().String())
	})
	return v
}

// Struct validates v and reports failures as a validation error with one
// detail per field.
func Struct(v any) error {
	details, err := Fields(v)
	if err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	return apperr.ValidationFields("invalid input", details)
}

// Fields validates v and returns a message per failing field.
func Fields(v any) (map[string]string, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, apperr.Validation("invalid input")
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = describe(fe)
	}
	return details, nil
}

// fieldPath drops the struct name so details read "sectors[0]", not
// "AddUserRequest.sectors[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "sector":
		return "must be one of " + strings.Join(Sectors, ", ")
	default:
		return "is invalid"
	}
}
