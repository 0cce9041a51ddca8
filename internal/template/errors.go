package template

import (
	"github.com/allisson/txgateway/internal/errors"
)

// ErrTemplateResolution indicates a template could not be resolved.
var ErrTemplateResolution = errors.Wrap(errors.ErrInvalidInput, "template resolution failed")

// ErrUnknownHelper indicates a template references a helper that is not registered.
var ErrUnknownHelper = errors.Wrap(ErrTemplateResolution, "unknown helper")
