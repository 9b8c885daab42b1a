package entity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "block list too long",
			field:    "block_list",
			message:  "block_list must not exceed 4096 bytes",
			expected: "validation error on field 'block_list': block_list must not exceed 4096 bytes",
		},
		{
			name:     "empty field name",
			field:    "",
			message:  "test message",
			expected: "validation error on field '': test message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Field: tt.field, Message: tt.message}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestSentinelErrors_Uniqueness(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidInput, ErrValidationFailed, ErrInvalidKey, ErrBlocked}

	for i := range sentinels {
		for j := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(sentinels[i], sentinels[j]), "%v should not match %v", sentinels[i], sentinels[j])
		}
	}
}

/* ───────── UserError ───────── */

func TestUserError(t *testing.T) {
	// Arrange
	cause := fmt.Errorf("decode: %w", ErrInvalidKey)

	// Act
	err := NewUserError("Invalid key.", cause)
	wrapped := fmt.Errorf("dispatch: %w", err)

	// Assert
	assert.Equal(t, "Invalid key.", err.Error())
	assert.True(t, IsUserError(wrapped))
	assert.True(t, errors.Is(wrapped, ErrInvalidKey))
	assert.False(t, IsDependencyError(wrapped))

	var userErr *UserError
	require.True(t, errors.As(wrapped, &userErr))
	assert.Equal(t, "Invalid key.", userErr.Message)
}

func TestUserError_WithoutCause(t *testing.T) {
	err := NewUserError("Message blocked.", nil)

	assert.Equal(t, "Message blocked.", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

/* ───────── DependencyError ───────── */

func TestDependencyError_Error(t *testing.T) {
	tests := []struct {
		name          string
		err           *DependencyError
		wantMessage   string
		wantTransport bool
	}{
		{
			name:          "provider error",
			err:           &DependencyError{Provider: "wecom", Op: "send", Code: 40014, Message: "invalid access_token"},
			wantMessage:   "wecom send: provider error 40014: invalid access_token",
			wantTransport: false,
		},
		{
			name:          "transport error",
			err:           &DependencyError{Provider: "telegram", Op: "sendMessage", Err: context.DeadlineExceeded},
			wantMessage:   "telegram sendMessage: transport error: context deadline exceeded",
			wantTransport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.err.Error())
			assert.Equal(t, tt.wantTransport, tt.err.IsTransport())
			assert.True(t, IsDependencyError(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestDependencyError_Unwrap(t *testing.T) {
	err := &DependencyError{Provider: "wecom", Op: "gettoken", Err: context.Canceled}

	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsUserError(err))
}
