package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	base := errors.New("disk full")
	wrapped := fmt.Errorf("save user: %w", Wrap(base, CodeInternal, "failed to save user"))

	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(base, CodeInternal))
	require.ErrorIs(t, wrapped, base)
}

func TestErrorIsMatchesCodeAndMessage(t *testing.T) {
	err := New(CodeUnauthorized, "invalid token")

	require.ErrorIs(t, err, New(CodeUnauthorized, "invalid token"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
	assert.NotErrorIs(t, err, New(CodeForbidden, "invalid token"))
}

func TestAs(t *testing.T) {
	de, ok := As(fmt.Errorf("outer: %w", New(CodeConflict, "email already registered")))
	require.True(t, ok)
	assert.Equal(t, CodeConflict, de.Code)
	assert.Equal(t, "email already registered", de.Message)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
