package errors

import (
	"time"
	"unicode"
)

// maxIDLength bounds item identifiers coming from hosts and HTTP callers.
const maxIDLength = 256

// ValidateItemID validates an item identifier for safety and correctness.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or null bytes
//   - Maximum length of 256 characters
//
// Identifiers are otherwise opaque; host-specific rules belong to the host.
func ValidateItemID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "item id cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "item id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "item id contains invalid control characters")
		}
	}

	return nil
}

// ValidateRange checks that start and end are set and that start ≤ end.
// Equal instants are a valid zero-length range.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return New(ErrCodeInvalidRange, "start and end must both be set")
	}
	if start.After(end) {
		return New(ErrCodeInvalidRange, "start %s is after end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}
