package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.EqualError(t, appErr, "internal server error: boom")
}

func TestFromErrorKeepsTyped(t *testing.T) {
	wrapped := fmt.Errorf("punch: %w", ErrAlreadyClockedIn)
	appErr := FromError(wrapped)
	assert.Same(t, ErrAlreadyClockedIn, appErr)
}

func TestCloneMatchesOriginal(t *testing.T) {
	clone := Clone(ErrWrongSecret, "PIN does not match")
	assert.Equal(t, "PIN does not match", clone.Message)
	assert.Equal(t, http.StatusForbidden, clone.Status)
	assert.True(t, errors.Is(clone, ErrWrongSecret))
	assert.False(t, errors.Is(clone, ErrWrongWitnessSecret))
}
