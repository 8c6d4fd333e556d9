package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidRange, "test message: %s", "value")

	if err.Code != ErrCodeInvalidRange {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidRange)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_RANGE: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInternal, cause, "failed to load")

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestCommitFailed(t *testing.T) {
	err := CommitFailed(ReasonConcurrentModification, nil, "item %q changed", "a")

	if err.Code != ErrCodeCommitFailure {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeCommitFailure)
	}
	expected := `COMMIT_FAILURE(concurrent_modification): item "a" changed`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
	if got := CommitReason(err); got != ReasonConcurrentModification {
		t.Errorf("CommitReason() = %v, want %v", got, ReasonConcurrentModification)
	}
}

func TestCommitReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Reason
	}{
		{"nil", nil, ""},
		{"typed", CommitFailed(ReasonValidationRejected, nil, "x"), ReasonValidationRejected},
		{"wrapped typed", Wrap(ErrCodeInternal, CommitFailed(ReasonNotFound, nil, "x"), "outer"), ReasonTransportFailure},
		{"plain", errors.New("socket closed"), ReasonTransportFailure},
		{"other code", New(ErrCodeInvalidRange, "x"), ReasonTransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommitReason(tt.err); got != tt.expected {
				t.Errorf("CommitReason() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAsCommitFailure(t *testing.T) {
	if AsCommitFailure(nil, "a") != nil {
		t.Error("AsCommitFailure(nil) should be nil")
	}

	typed := CommitFailed(ReasonValidationRejected, nil, "bad")
	if got := AsCommitFailure(typed, "a"); got != error(typed) {
		t.Errorf("typed error should pass through, got %v", got)
	}

	plain := errors.New("timeout")
	got := AsCommitFailure(plain, "a")
	if !Is(got, ErrCodeCommitFailure) {
		t.Fatalf("AsCommitFailure should produce COMMIT_FAILURE, got %v", got)
	}
	if CommitReason(got) != ReasonTransportFailure {
		t.Errorf("reason = %v, want %v", CommitReason(got), ReasonTransportFailure)
	}
	if !errors.Is(got, plain) {
		t.Error("cause should be preserved")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeGestureConflict, "test"),
			code:     ErrCodeGestureConflict,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidRange,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeCommitFailure, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeCommitFailure,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeNotFound, "test"),
			expected: ErrCodeNotFound,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
