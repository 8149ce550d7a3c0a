package domain

import (
	"fmt"
	"net/http"
	"time"
)

// RedirectKind selects between permanent and temporary redirect semantics.
type RedirectKind string

const (
	RedirectPermanent RedirectKind = "permanent"
	RedirectTemporary RedirectKind = "temporary"
)

// ParseRedirectKind parses a redirect kind. An empty string yields RedirectTemporary.
func ParseRedirectKind(s string) (RedirectKind, error) {
	switch RedirectKind(s) {
	case "":
		return RedirectTemporary, nil
	case RedirectPermanent, RedirectTemporary:
		return RedirectKind(s), nil
	default:
		return "", fmt.Errorf("%w: redirect kind must be permanent or temporary, got %q", ErrValidation, s)
	}
}

// StatusCode maps the kind to an HTTP redirect status.
// With preserveMethod the method-preserving variants (308/307) are used.
func (k RedirectKind) StatusCode(preserveMethod bool) int {
	if k == RedirectPermanent {
		if preserveMethod {
			return http.StatusPermanentRedirect
		}
		return http.StatusMovedPermanently
	}
	if preserveMethod {
		return http.StatusTemporaryRedirect
	}
	return http.StatusFound
}

// Link is a shortened URL together with its click totals.
// TotalClicks and LastClicked are derived from recorded click events and are
// only changed by the store when a click is recorded.
type Link struct {
	ID           int64        `json:"id"`
	ShortCode    string       `json:"shortCode"`
	TargetURL    string       `json:"targetUrl"`
	RedirectKind RedirectKind `json:"redirectKind"`
	CreatedAt    time.Time    `json:"createdAt"`
	TotalClicks  int64        `json:"totalClicks"`
	LastClicked  *time.Time   `json:"lastClicked"`
}
