package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrCodeNotFound, CodeOf(NotFound("brand", "b1")))
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(fmt.Errorf("outer: %w", InvalidInput("name", "is required"))))
	assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeInternal, CodeOf(nil))
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "brand b1 not found", NotFound("brand", "b1").Error())
	assert.Equal(t, "name: is required", InvalidInput("name", "is required").Error())

	cause := fmt.Errorf("connection reset")
	wrapped := Wrap(cause, ErrCodeInternal, "failed to get brand")
	assert.Equal(t, "failed to get brand: connection reset", wrapped.Error())
	assert.True(t, Is(wrapped, cause))
}

func TestIsMatchesCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("ctx: %w", New(ErrCodeConflict, "cannot progress brand"))
	assert.True(t, Is(err, &Error{Code: ErrCodeConflict}))
	assert.False(t, Is(err, &Error{Code: ErrCodeNotFound}))
}
