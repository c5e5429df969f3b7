package errors

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// maxTitleLength bounds record titles accepted by the API and CLI.
const maxTitleLength = 200

// ValidateTitle validates a human-readable title for a stored graph.
// Empty titles are allowed; the caller substitutes a default.
//
// Validation rules:
//   - Maximum length of 200 characters
//   - No control characters (newlines included)
func ValidateTitle(title string) error {
	if len(title) > maxTitleLength {
		return New(ErrCodeInvalidInput, "title too long (max %d characters)", maxTitleLength)
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "title contains invalid control characters")
		}
	}
	return nil
}

// ValidateGraphID checks that id is a canonical UUID as assigned by the store.
func ValidateGraphID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "graph id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidID, err, "invalid graph id %q", id)
	}
	return nil
}

// ValidatePath validates an input file path supplied on the command line.
// It rejects empty paths and paths carrying control characters or null bytes.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}
	return nil
}
