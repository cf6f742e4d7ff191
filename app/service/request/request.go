// Package request contains validated input types for service operations
package request

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

var validate = newValidator()

// newValidator makes validator reporting fields by their json names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Register contains parameters for a new account
type Register struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=employer seeker"`
}

// Validate normalizes email and role and checks all fields
func (r *Register) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	if err := check(r); err != nil {
		return err
	}
	if len(r.Password) > MaxPasswordBytes {
		return fmt.Errorf("password: must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// Login contains credentials
type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate normalizes email and checks credentials are present
func (r *Login) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	return check(r)
}

// CreateJob contains parameters for a new job posting
type CreateJob struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"required"`
	Location    string `json:"location" validate:"max=100"`
	Salary      string `json:"salary" validate:"max=50"`
}

// Validate trims all fields and checks required ones and lengths
func (r *CreateJob) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.Salary = strings.TrimSpace(r.Salary)
	return check(r)
}

// Apply contains an application to a job
type Apply struct {
	CoverLetter string `json:"cover_letter" validate:"required"`
}

// Validate checks cover letter is not blank
func (r *Apply) Validate() error {
	r.CoverLetter = strings.TrimSpace(r.CoverLetter)
	return check(r)
}

// NormalizeEmail trims and lower-cases email
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// check runs struct validation and makes a readable error from the first failed field
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: is required", field)
	case "email":
		return fmt.Errorf("%s: must be a valid email", field)
	case "max":
		return fmt.Errorf("%s: must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s]", field, fe.Param())
	default:
		return fmt.Errorf("%s: failed %s check", field, fe.Tag())
	}
}
