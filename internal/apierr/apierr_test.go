package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeMissingFields, 400},
		{CodeMissingPayloadFields, 400},
		{CodeInvalidType, 400},
		{CodeInvalidTimestamp, 400},
		{CodeInvalidAction, 400},
		{CodeInvalidActivityLogs, 400},
		{CodeInvalidProjectID, 400},
		{CodeInvalidAPIKey, 401},
		{CodeInvalidAPISecret, 401},
		{CodeProjectAccessDenied, 403},
		{CodeMethodNotAllowed, 405},
		{CodeDatabaseError, 500},
		{CodeDatabaseUpdateError, 500},
		{CodeDatabaseInsertError, 500},
		{CodeInternalError, 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(New(tt.code, "x")), string(tt.code))
	}
}

func TestExtractors(t *testing.T) {
	err := New(CodeInvalidAPIKey, "Invalid API key")
	assert.Equal(t, CodeInvalidAPIKey, CodeOf(err))
	assert.Equal(t, 401, StatusOf(err))
	assert.Equal(t, "Invalid API key", MessageOf(err))

	// Extraction works through wrapping.
	wrapped := fmt.Errorf("handling request: %w", err)
	assert.Equal(t, CodeInvalidAPIKey, CodeOf(wrapped))
	assert.Equal(t, 401, StatusOf(wrapped))
}

func TestExtractors_PlainError(t *testing.T) {
	err := errors.New("something broke")
	assert.Equal(t, CodeInternalError, CodeOf(err))
	assert.Equal(t, 500, StatusOf(err))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk i/o")
	err := Wrap(CodeDatabaseError, "Database error occurred", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDatabaseError, CodeOf(err))
	assert.Equal(t, "Database error occurred", MessageOf(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeDatabaseError, "x")))
	assert.False(t, IsRetryable(New(CodeInvalidAction, "x")))
	assert.False(t, IsRetryable(New(CodeInvalidAPIKey, "x")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestErrorClasses(t *testing.T) {
	assert.ErrorIs(t, New(CodeInvalidAction, "x"), ErrInvalidInput)
	assert.ErrorIs(t, New(CodeInvalidAPIKey, "x"), ErrUnauthorized)
	assert.ErrorIs(t, New(CodeProjectAccessDenied, "x"), ErrUnauthorized)
}
