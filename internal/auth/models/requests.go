package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "safesupport/pkg/domain-errors"
)

// validate is shared by every request type; field names in messages are the
// JSON names.
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
	return v
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,max=128"`
	Name        string `json:"name" validate:"max=200"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	NotifyBySMS bool   `json:"notifyBySMS"`
}

func (r *RegisterRequest) Validate() error { return validateStruct(r) }

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error { return validateStruct(r) }

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r *ResetPasswordRequest) Validate() error { return validateStruct(r) }

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *PublicUser `json:"user"`
	Token string      `json:"token"`
}

// VerifyOutcome distinguishes the first successful verification from a repeat.
type VerifyOutcome int

const (
	VerifyOutcomeVerified VerifyOutcome = iota
	VerifyOutcomeAlreadyVerified
)

// validateStruct reports the first failing field as a validation error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "email":
		msg = fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return dErrors.New(dErrors.CodeValidation, msg)
}
