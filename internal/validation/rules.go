// Package validation provides the validation rules shared by request DTOs and the
// per-transaction schema validator.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/txgateway/internal/errors"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	numericRegex = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
)

// WrapValidationError turns a rule failure into ErrInvalidInput keeping its message.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email accepts a conventional local@domain.tld address.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// Numeric validates that a string holds a decimal number.
var Numeric = validation.NewStringRuleWithError(
	func(s string) bool {
		return numericRegex.MatchString(s)
	},
	validation.NewError("validation_numeric", "must be numeric"),
)

// NoWhitespace rejects leading or trailing whitespace. Encoded envelope parts never carry it.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank rejects strings that are empty after trimming.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
