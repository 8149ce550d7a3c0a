package domain

import (
	"errors"

	"linkboard/internal/domain/valueobject"
)

var (
	ErrLinkNotFound    = errors.New("link not found")
	ErrShortCodeExists = errors.New("short code already exists")
	ErrValidation      = errors.New("validation failed")

	// Re-export value object errors for convenience.
	ErrInvalidURL  = valueobject.ErrInvalidURL
	ErrInvalidCode = valueobject.ErrInvalidCode
)

// IsValidation reports whether err is any of the input validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrInvalidCode)
}
