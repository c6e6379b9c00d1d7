package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Role   string `json:"role" validate:"required,role"`
	Day    string `json:"day" validate:"required,date"`
	At     string `json:"at" validate:"omitempty,clock"`
	Gender string `json:"gender" validate:"required,oneof=male female other"`
	RefID  int64  `json:"ref_id" validate:"gt=0"`
}

func validSample() sample {
	return sample{
		Name:   "Ann",
		Email:  "ann@example.com",
		Role:   "front-desk",
		Day:    "2024-02-29",
		At:     "09:30",
		Gender: "female",
		RefID:  1,
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, New().Struct(validSample()))

	s := validSample()
	s.Email = ""
	s.At = "09:30:15"
	require.NoError(t, New().Struct(s))
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	s := sample{Email: "not-an-email", Role: "janitor", Day: "2024-13-01", At: "25:00", Gender: "x"}

	err := New().Struct(s)
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *Error, got %T", err)
	require.Equal(t, map[string]string{
		"name":   "name is required",
		"email":  "email must be a valid email address",
		"role":   "role must be a known role",
		"day":    "day must be YYYY-MM-DD",
		"at":     "at must be HH:MM",
		"gender": "gender must be one of: male, female, other",
		"ref_id": "ref_id is required",
	}, verr.Fields)
}

func TestErrorMessageIsStable(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "b is required", "a": "a is required"}}
	require.Equal(t, "a is required; b is required", err.Error())
}
