package domain

import (
	"github.com/allisson/txgateway/internal/errors"
)

var (
	// ErrConfiguration indicates the configuration tree is missing or inconsistent.
	ErrConfiguration = errors.Wrap(errors.ErrNotFound, "configuration error")

	// ErrUnknownSource indicates a data source name is not configured.
	ErrUnknownSource = errors.Wrap(ErrConfiguration, "unknown data source")
)
