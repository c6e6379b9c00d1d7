// Package validate wraps go-playground/validator with the clinic's custom
// rules and reports failures keyed by JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"clinicdesk.org/internal/auth"
)

// Custom tags registered by New.
const (
	TagRole  = "role"
	TagDate  = "date"
	TagClock = "clock"
)

// Validator checks tagged structs.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation(TagRole, func(fl validator.FieldLevel) bool {
		return slices.Contains(auth.Roles(), auth.Role(fl.Field().String()))
	})
	_ = v.RegisterValidation(TagDate, func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(TagClock, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if _, err := time.Parse("15:04", s); err == nil {
			return true
		}
		_, err := time.Parse(time.TimeOnly, s)
		return err == nil
	})

	return &Validator{v: v}
}

// Struct validates s. Rule failures come back as *Error.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return newError(verrs)
	}
	return err
}

// Error lists the failing fields with a message each.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return strings.Join(msgs, "; ")
}

func newError(errs validator.ValidationErrors) *Error {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "gt":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		case TagRole:
			fields[field] = fmt.Sprintf("%s must be a known role", field)
		case TagDate:
			fields[field] = fmt.Sprintf("%s must be YYYY-MM-DD", field)
		case TagClock:
			fields[field] = fmt.Sprintf("%s must be HH:MM", field)
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return &Error{Fields: fields}
}
