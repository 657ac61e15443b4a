package app

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"weekly-trivia/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{3,20}$`)
	pinPattern      = regexp.MustCompile(`^[0-9]{4}$`)
	validate        = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("trivia_username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("trivia_pin", func(fl validator.FieldLevel) bool {
		return pinPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("display_name", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if strings.TrimSpace(name) != name {
			return false
		}
		n := utf8.RuneCountInString(name)
		if n < 1 || n > 32 {
			return false
		}
		for _, r := range name {
			if !unicode.IsPrint(r) {
				return false
			}
		}
		return true
	})
	return v
}

// NormalizeUsername applies the input conventions of the login form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateCredentials checks the shape of a username/PIN pair. It is a form
// pre-filter only; the backend decides whether the pair is valid.
func ValidateCredentials(username, pin string) error {
	return toValidationError(validate.Struct(domain.Credentials{Username: username, PIN: pin}))
}

// ValidateDisplayName checks a guest display name.
func ValidateDisplayName(name string) error {
	return toValidationError(validate.Var(name, "display_name"))
}

var fieldMessages = map[string]string{
	"Username": "username must be 3-20 characters of lowercase letters, digits, dash or underscore",
	"PIN":      "PIN must be exactly 4 digits",
}

var fieldKeys = map[string]string{
	"Username": "username",
	"PIN":      "pin",
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &domain.ValidationError{Fields: make(map[string]string)}
	for _, fe := range verrs {
		key, ok := fieldKeys[fe.Field()]
		if !ok {
			out.Fields["display_name"] = "display name must be 1-32 printable characters without surrounding spaces"
			continue
		}
		out.Fields[key] = fieldMessages[fe.Field()]
	}
	return out
}
