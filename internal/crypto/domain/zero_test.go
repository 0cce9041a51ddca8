package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	Zero(key[:16])
	assert.Equal(t, make([]byte, 16), key[:16])
	assert.Equal(t, "0123456789abcdef", string(key[16:]))

	assert.NotPanics(t, func() { Zero(nil) })
}
