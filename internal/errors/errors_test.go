package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeNotFound, "session not found")
	assert.Equal(t, "NOT_FOUND: session not found", err.Error())

	wrapped := Wrap(ErrCodeDatabase, "Database error", fmt.Errorf("connection refused"))
	assert.Contains(t, wrapped.Error(), "DATABASE_ERROR")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(ErrCodeInternal, "something broke", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestInvalidTransition(t *testing.T) {
	err := InvalidTransition("pause", "created")

	assert.Equal(t, ErrCodeInvalidTransition, err.Code)
	assert.Contains(t, err.Message, "pause")
	assert.Contains(t, err.Message, "created")

	details, ok := err.Details.(map[string]string)
	assert.True(t, ok)
	assert.Equal(t, "created", details["currentStatus"])
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NotFound("session").Code)
	assert.Equal(t, ErrCodeEmptyText, EmptyText("feeling text").Code)
	assert.Equal(t, ErrCodeConflict, Conflict("another session is active").Code)
	assert.Equal(t, ErrCodeNoReport, NoReport().Code)
	assert.Equal(t, ErrCodeDatabase, Database(fmt.Errorf("x")).Code)
	assert.Equal(t, ErrCodeExternal, External("llm", fmt.Errorf("x")).Code)
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("session")
	wrapped := fmt.Errorf("handler: %w", appErr)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, got.Code)

	_, ok = AsAppError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeConflict, GetCode(Conflict("busy")))
	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("plain")))
}
