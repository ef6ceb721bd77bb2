// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"fittedin/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLen    = 8
	maxPasswordLen    = 128
	minDisplayNameLen = 2
	maxDisplayNameLen = 100
	maxEmailLen       = 254
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidatePassword checks that a password is 8-128 characters and mixes
// upper case, lower case and digits.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLen)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}

// ValidateDisplayName checks the trimmed display name length.
func ValidateDisplayName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minDisplayNameLen || n > maxDisplayNameLen {
		return fmt.Errorf("display name must be between %d and %d characters", minDisplayNameLen, maxDisplayNameLen)
	}
	return nil
}

// ValidateEmail checks e-mail syntax.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLen)
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return errors.New("please provide a valid email")
	}
	return nil
}

// IsEmail reports whether email is syntactically valid.
func IsEmail(email string) bool {
	return ValidateEmail(email) == nil
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Struct runs the `validate` tags of s and reports the first failure as a
// Validation AppError naming the JSON field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewValidationError("Invalid request body")
	}
	return models.NewValidationError(fieldMessage(verrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
