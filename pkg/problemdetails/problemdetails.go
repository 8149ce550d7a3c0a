// Package problemdetails renders RFC 7807 problem responses.
package problemdetails

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const ContentType = "application/problem+json"

const (
	TypeInvalidRequest    = "invalid-request"
	TypeInvalidURL        = "invalid-url"
	TypeInvalidCode       = "invalid-code"
	TypeNotFound          = "not-found"
	TypeConflict          = "short-code-conflict"
	TypeRateLimitExceeded = "rate-limit-exceeded"
	TypeUpstreamError     = "upstream-error"
	TypeInternalError     = "internal-error"
	TypeValidationError   = "validation-error"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ProblemDetail struct {
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	Status int          `json:"status"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

func typeURI(problemType string) string {
	return fmt.Sprintf("https://linkboard.dev/problems/%s", problemType)
}

func New(status int, problemType, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   typeURI(problemType),
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

func NewValidation(errors []FieldError) *ProblemDetail {
	return &ProblemDetail{
		Type:   typeURI(TypeValidationError),
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Detail: "Request validation failed",
		Errors: errors,
	}
}

func NotFound(detail string) *ProblemDetail {
	return New(http.StatusNotFound, TypeNotFound, "Not Found", detail)
}

func Conflict(detail string) *ProblemDetail {
	return New(http.StatusConflict, TypeConflict, "Short Code Taken", detail)
}

func Upstream(detail string) *ProblemDetail {
	return New(http.StatusServiceUnavailable, TypeUpstreamError, "Service Unavailable", detail)
}

func Internal() *ProblemDetail {
	return New(http.StatusInternalServerError, TypeInternalError, "Internal Server Error", "Internal server error")
}

// Write encodes p as the response body with its status code.
func Write(w http.ResponseWriter, p *ProblemDetail) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
