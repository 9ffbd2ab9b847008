package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	expected := "INVALID_INPUT: test error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", 500)

	if err.Cause != originalErr {
		t.Errorf("Cause = %v, want %v", err.Cause, originalErr)
	}
	if !strings.Contains(err.Error(), "original error") {
		t.Errorf("Error() should contain cause, got: %v", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("errors.Is should match the wrapped cause")
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	err.WithContext("field", "value").WithContext("count", 42)

	if err.Context["field"] != "value" {
		t.Errorf("Context[field] = %v, want 'value'", err.Context["field"])
	}
	if err.Context["count"] != 42 {
		t.Errorf("Context[count] = %v, want 42", err.Context["count"])
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewNotFoundError("room")
	wrapped := WrapError(appErr, ErrCodeInternal, "outer", 500)

	if got := GetAppError(wrapped); got == nil {
		t.Fatal("GetAppError returned nil for wrapped AppError")
	}
	if got := GetAppError(errors.New("plain")); got != nil {
		t.Errorf("GetAppError = %v, want nil for plain error", got)
	}
}

func TestNewRoomEndedError(t *testing.T) {
	err := NewRoomEndedError("r1")
	if err.Code != ErrCodeRoomEnded {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeRoomEnded)
	}
	if err.HTTPStatus != http.StatusGone {
		t.Errorf("HTTPStatus = %v, want %v", err.HTTPStatus, http.StatusGone)
	}
	if err.Context["room_id"] != "r1" {
		t.Errorf("Context[room_id] = %v, want r1", err.Context["room_id"])
	}
}
