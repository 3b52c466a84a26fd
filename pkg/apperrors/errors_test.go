package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError("top_k", "must be an integer between 1 and 100")
	assert.Equal(t, "invalid top_k: must be an integer between 1 and 100", err.Error())
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("query", "must not be empty")))
	assert.True(t, IsValidation(fmt.Errorf("search: %w", NewValidationError("query", "must not be empty"))))
	assert.False(t, IsValidation(ErrNotIndexed))
	assert.False(t, IsValidation(errors.New("something else")))
	assert.False(t, IsValidation(nil))
}

func TestSentinelsWrapCleanly(t *testing.T) {
	wrapped := fmt.Errorf("trigger source %s: %w", "warehouse", ErrSourceNotConfigured)
	assert.ErrorIs(t, wrapped, ErrSourceNotConfigured)
	assert.NotErrorIs(t, wrapped, ErrExtractionRunning)
}
