package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/samber/lo"

	"linkboard/internal/analytics"
	"linkboard/internal/domain"
	"linkboard/pkg/problemdetails"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeProblem(w http.ResponseWriter, problem *problemdetails.ProblemDetail) {
	problemdetails.Write(w, problem)
}

// problemFor maps service errors onto problem responses. Anything unknown is
// reported as a store failure without leaking the cause.
func problemFor(err error) *problemdetails.ProblemDetail {
	switch {
	case errors.Is(err, domain.ErrLinkNotFound):
		return problemdetails.NotFound(err.Error())
	case errors.Is(err, domain.ErrShortCodeExists):
		return problemdetails.Conflict(err.Error())
	case errors.Is(err, domain.ErrInvalidURL):
		return problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidURL, "Invalid URL", err.Error())
	case errors.Is(err, domain.ErrInvalidCode):
		return problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidCode, "Invalid Short Code", err.Error())
	case errors.Is(err, domain.ErrValidation):
		return problemdetails.New(http.StatusBadRequest, problemdetails.TypeValidationError, "Validation Failed", err.Error())
	default:
		return problemdetails.Upstream("The link store is unavailable, please retry later")
	}
}

// LinkResponse is a link with its public short URL.
type LinkResponse struct {
	domain.Link
	ShortURL string `json:"shortUrl"`
}

// LinkListResponse is one page of links.
type LinkListResponse struct {
	Data       []LinkResponse    `json:"data"`
	Pagination domain.Pagination `json:"pagination"`
}

// LinkStatsResponse is a link with its raw events and daily series.
type LinkStatsResponse struct {
	*analytics.LinkStats
	ShortURL string `json:"shortUrl"`
}

// CreateLinkRequest is the body of POST /api/links.
type CreateLinkRequest struct {
	TargetURL    string `json:"targetUrl"`
	CustomCode   string `json:"customCode,omitempty"`
	RedirectKind string `json:"redirectKind,omitempty"`
}

// UptimeCheckRequest is the body of POST /api/links/{code}/uptime-checks.
type UptimeCheckRequest struct {
	Status    string     `json:"status"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) toLinkResponse(l domain.Link) LinkResponse {
	return LinkResponse{Link: l, ShortURL: h.shortURL(l.ShortCode)}
}

func (h *Handler) toLinkList(page *domain.Page[domain.Link]) LinkListResponse {
	return LinkListResponse{
		Data: lo.Map(page.Data, func(l domain.Link, _ int) LinkResponse {
			return h.toLinkResponse(l)
		}),
		Pagination: page.Pagination,
	}
}
