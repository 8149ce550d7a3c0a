// Package redirect resolves short codes into redirect decisions.
package redirect

import (
	"linkboard/internal/domain"
)

// Kind tags the variant of an Outcome.
type Kind int

const (
	// KindNotFound means no live link exists for the code.
	KindNotFound Kind = iota
	// KindRedirect carries a target URL and redirect status.
	KindRedirect
	// KindMalformedRedirect means the upstream answered with something that is
	// neither a redirect nor a not-found.
	KindMalformedRedirect
	// KindUpstreamError means the store or upstream could not be reached.
	KindUpstreamError
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRedirect:
		return "redirect"
	case KindMalformedRedirect:
		return "malformed_redirect"
	case KindUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of resolving a short code. Only the fields relevant to
// Kind are set.
type Outcome struct {
	Kind       Kind
	ShortCode  string
	TargetURL  string
	StatusCode int
	Detail     string
	Click      *domain.ClickEvent
}

func NotFound(code string) Outcome {
	return Outcome{Kind: KindNotFound, ShortCode: code}
}

func Redirect(code, targetURL string, status int) Outcome {
	return Outcome{Kind: KindRedirect, ShortCode: code, TargetURL: targetURL, StatusCode: status}
}

func MalformedRedirect(code string, status int, detail string) Outcome {
	return Outcome{Kind: KindMalformedRedirect, ShortCode: code, StatusCode: status, Detail: detail}
}

func UpstreamError(code, detail string) Outcome {
	return Outcome{Kind: KindUpstreamError, ShortCode: code, Detail: detail}
}
