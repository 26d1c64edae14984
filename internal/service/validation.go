package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dtroode/authlib-server/internal/model"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	passwordSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validateCredentials applies the registration policy to email and password.
func validateCredentials(email, password string) error {
	c := credentials{Email: email, Password: password}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Email, emailRules()...),
		validation.Field(&c.Password,
			validation.Required,
			validation.Length(minPasswordLength, maxPasswordLength),
			validation.By(passwordStrength),
		),
	)
	return asValidationError(err)
}

// validateEmail applies the email policy alone, for login.
func validateEmail(email string) error {
	return asValidationError(validation.Validate(email, emailRules()...))
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(0, model.MaxEmailLength),
		validation.Match(emailPattern).Error("must be an email address"),
	}
}

func passwordStrength(value interface{}) error {
	s, _ := value.(string)

	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !symbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return errors.New("must contain " + strings.Join(missing, ", "))
	}
	return nil
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	return model.NewValidationError(err.Error())
}
