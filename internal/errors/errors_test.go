package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type backendError struct {
	Service string
}

func (e backendError) Error() string { return "backend " + e.Service + " failed" }

func TestWrap(t *testing.T) {
	errSession := Wrap(ErrUnauthorized, "authentication failed")
	errExpired := Wrap(errSession, "session expired")

	assert.EqualError(t, errExpired, "session expired: authentication failed: unauthorized")
	assert.True(t, Is(errExpired, errSession))
	assert.True(t, Is(errExpired, ErrUnauthorized))
	assert.False(t, Is(errExpired, ErrForbidden))

	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", Wrap(backendError{Service: "core"}, "balance"))

	var target backendError
	assert.True(t, As(err, &target))
	assert.Equal(t, "core", target.Service)

	var pathErr interface{ Timeout() bool }
	assert.False(t, As(err, &pathErr))
}

func TestSentinels(t *testing.T) {
	sentinels := []struct {
		err  error
		text string
	}{
		{ErrNotFound, "not found"},
		{ErrConflict, "conflict"},
		{ErrInvalidInput, "invalid input"},
		{ErrUnauthorized, "unauthorized"},
		{ErrForbidden, "forbidden"},
		{ErrUnavailable, "unavailable"},
	}

	for i, tt := range sentinels {
		t.Run(tt.text, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.text)
			assert.Equal(t, New(tt.text).Error(), tt.err.Error())
			for j, other := range sentinels {
				if i != j {
					assert.False(t, errors.Is(tt.err, other.err))
				}
			}
		})
	}
}
