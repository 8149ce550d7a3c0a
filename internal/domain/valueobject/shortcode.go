package valueobject

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultShortCodeLength = 8
	MinCustomCodeLength    = 3
	MaxCustomCodeLength    = 20

	// alphanumeric, case-sensitive
	shortCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var shortCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// reservedCodes are top-level paths the router serves itself.
var reservedCodes = map[string]struct{}{
	"api":     {},
	"healthz": {},
	"readyz":  {},
}

// IsReservedCode reports whether code collides with a routed path.
func IsReservedCode(code string) bool {
	_, ok := reservedCodes[code]
	return ok
}

// ShortCode is a value object representing a link short code.
// It is immutable and validated on creation. Comparison is case-sensitive.
type ShortCode struct {
	value string
}

// NewShortCode creates a new ShortCode from a string, validating the format.
func NewShortCode(code string) (ShortCode, error) {
	if err := validation.Validate(code,
		validation.Required.Error("short code is required"),
		validation.Length(MinCustomCodeLength, MaxCustomCodeLength).Error("short code must be 3-20 characters"),
		validation.Match(shortCodeRegex).Error("short code must contain only alphanumeric characters, underscores, and hyphens"),
	); err != nil {
		return ShortCode{}, ErrInvalidCode
	}
	if IsReservedCode(code) {
		return ShortCode{}, ErrInvalidCode
	}
	return ShortCode{value: code}, nil
}

// GenerateShortCode creates a new random ShortCode of the specified length.
func GenerateShortCode(length int) (ShortCode, error) {
	if length <= 0 {
		length = DefaultShortCodeLength
	}

	for {
		code, err := gonanoid.Generate(shortCodeAlphabet, length)
		if err != nil {
			return ShortCode{}, err
		}
		if !IsReservedCode(code) {
			return ShortCode{value: code}, nil
		}
	}
}

// String returns the string representation of the ShortCode.
func (s ShortCode) String() string {
	return s.value
}

// IsEmpty returns true if the ShortCode is empty.
func (s ShortCode) IsEmpty() bool {
	return s.value == ""
}

// Equals compares two ShortCodes for equality.
func (s ShortCode) Equals(other ShortCode) bool {
	return s.value == other.value
}
