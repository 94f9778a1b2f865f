package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		code     Code
		sentinel error
	}{
		{CodeInvalidImplementation, ErrInvalidImplementation},
		{CodeInvalidSecrets, ErrInvalidSecrets},
		{CodeExecution, ErrExecution},
		{CodeInvalidProvider, ErrInvalidProvider},
		{CodeContentParsing, ErrContentParsing},
		{CodeProvider, ErrProvider},
		{CodeLLMModel, ErrLLMModel},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "boom")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.code, CodeOf(err))

			for _, other := range tests {
				if other.code != tt.code {
					assert.NotErrorIs(t, err, other.sentinel)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := Wrap(CodeExecution, cause, "Execution failed: %s", cause.Error())

	assert.Equal(t, "Execution failed: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCodeOf(t *testing.T) {
	t.Run("wrapped by fmt", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeProvider, "inner"))
		assert.Equal(t, CodeProvider, CodeOf(err))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
		assert.Equal(t, Code(""), CodeOf(nil))
	})
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "unknown error", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "text", Message("text"))
	assert.Equal(t, "42", Message(42))
}
