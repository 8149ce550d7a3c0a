package valueobject

import (
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const MaxTargetURLLength = 2048

// TargetURL is a value object representing the absolute URL a short code redirects to.
type TargetURL struct {
	value  string
	parsed *url.URL
}

// NewTargetURL creates a new TargetURL from a string, validating the format.
// Only absolute http and https URLs with a host are accepted.
func NewTargetURL(rawURL string) (TargetURL, error) {
	if err := validation.Validate(rawURL,
		validation.Required.Error("URL is required"),
		validation.Length(1, MaxTargetURLLength).Error("URL is too long"),
		is.URL.Error("invalid URL format"),
	); err != nil {
		return TargetURL{}, ErrInvalidURL
	}

	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return TargetURL{}, ErrInvalidURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return TargetURL{}, ErrInvalidURL
	}

	if parsed.Host == "" {
		return TargetURL{}, ErrInvalidURL
	}

	return TargetURL{
		value:  rawURL,
		parsed: parsed,
	}, nil
}

// String returns the URL exactly as it was supplied.
func (t TargetURL) String() string {
	return t.value
}

// Host returns the host portion of the URL.
func (t TargetURL) Host() string {
	if t.parsed == nil {
		return ""
	}
	return t.parsed.Host
}

// IsEmpty returns true if the TargetURL is empty.
func (t TargetURL) IsEmpty() bool {
	return t.value == ""
}
