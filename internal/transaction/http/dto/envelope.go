// Package dto provides data transfer objects for the sealed transaction routes.
package dto

import (
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/txgateway/internal/crypto/domain"
	customValidation "github.com/allisson/txgateway/internal/validation"
)

// EnvelopeRequest is the body of every sealed route: {"payload": Envelope}.
type EnvelopeRequest struct {
	Payload *cryptoDomain.Envelope `json:"payload"`
}

// Validate checks that the envelope carries both encrypted parts.
func (r *EnvelopeRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Payload, validation.Required),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(r.Payload,
		validation.Field(&r.Payload.SecureKeys, validation.Required, customValidation.NotBlank, customValidation.NoWhitespace),
		validation.Field(&r.Payload.Data, validation.Required, customValidation.NotBlank, customValidation.NoWhitespace),
	)
}

// EnvelopeResponse is the sealed reply: {"message": Envelope}.
type EnvelopeResponse struct {
	Message *cryptoDomain.Envelope `json:"message"`
}
