package validation

import (
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/txgateway/internal/errors"
)

func TestStringRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  validation.Rule
		valid []string
		bad   []string
	}{
		{
			name:  "Numeric",
			rule:  Numeric,
			valid: []string{"1000", "-10.50", "0.5", ""},
			bad:   []string{"10a", "10.", ".5", "1,000"},
		},
		{
			name:  "Email",
			rule:  Email,
			valid: []string{"user@example.com", "first.last+tag@mail.example.com"},
			bad:   []string{"userexample.com", "user@", "@example.com", "user@example", "user @example.com"},
		},
		{
			name:  "NoWhitespace",
			rule:  NoWhitespace,
			valid: []string{"a2V5cw==", "internal space"},
			bad:   []string{" a2V5cw==", "a2V5cw==\n", "\tabcd "},
		},
		{
			name:  "NotBlank",
			rule:  NotBlank,
			valid: []string{"abcd", " x "},
			bad:   []string{"   ", "\t\t", " \t\n "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, value := range tt.valid {
				assert.NoError(t, tt.rule.Validate(value), "value %q", value)
			}
			for _, value := range tt.bad {
				assert.Error(t, tt.rule.Validate(value), "value %q", value)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(validation.Errors{"data": NotBlank.Validate(" ")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "data: must not be blank")
}
