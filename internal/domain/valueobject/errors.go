package valueobject

import "errors"

var (
	ErrInvalidURL  = errors.New("invalid target url")
	ErrInvalidCode = errors.New("invalid short code format")
)
