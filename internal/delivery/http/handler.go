package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"linkboard/internal/analytics"
	"linkboard/internal/analytics/enrichment"
	"linkboard/internal/domain"
	"linkboard/internal/link"
	"linkboard/internal/pager"
	"linkboard/internal/redirect"
	"linkboard/pkg/problemdetails"
)

// RedirectSource resolves a short code for a visitor. It is the local
// redirect.Resolver, or a redirect.Prober when running against an upstream.
type RedirectSource interface {
	Resolve(ctx context.Context, code string, meta enrichment.RequestMeta) redirect.Outcome
}

// Handler handles HTTP requests for links, statistics and redirects
type Handler struct {
	links      *link.Service
	stats      *analytics.Service
	redirects  RedirectSource
	system     *SystemMonitor
	logger     *zap.Logger
	baseURL    string
	windowDays int
}

// NewHandler creates a new Handler. windowDays is the default statistics
// window when a request does not pass ?days.
func NewHandler(
	links *link.Service,
	stats *analytics.Service,
	redirects RedirectSource,
	system *SystemMonitor,
	logger *zap.Logger,
	baseURL string,
	windowDays int,
) *Handler {
	if windowDays <= 0 {
		windowDays = analytics.DefaultWindowDays
	}
	return &Handler{
		links:      links,
		stats:      stats,
		redirects:  redirects,
		system:     system,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		windowDays: windowDays,
	}
}

func (h *Handler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

// Redirect handles GET /{code}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	meta := enrichment.RequestMeta{
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		ClientIP:  r.RemoteAddr,
	}

	out := h.redirects.Resolve(r.Context(), code, meta)
	switch out.Kind {
	case redirect.KindRedirect:
		// every visit has to reach us to be counted
		w.Header().Set("Cache-Control", "private, max-age=0")
		http.Redirect(w, r, out.TargetURL, out.StatusCode)
	case redirect.KindNotFound:
		renderPage(w, h.logger, notFoundPage(code))
	case redirect.KindMalformedRedirect:
		h.logger.Warn("malformed redirect",
			zap.String("short_code", code),
			zap.Int("status", out.StatusCode),
			zap.String("detail", out.Detail),
		)
		renderPage(w, h.logger, malformedPage(code))
	default:
		renderPage(w, h.logger, unavailablePage(code))
	}
}

// CreateLink handles POST /api/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, problemdetails.New(
			http.StatusBadRequest,
			problemdetails.TypeInvalidRequest,
			"Invalid Request",
			"Request body must be valid JSON with a 'targetUrl' field",
		))
		return
	}
	if req.TargetURL == "" {
		writeProblem(w, problemdetails.NewValidation([]problemdetails.FieldError{
			{Field: "targetUrl", Message: "is required"},
		}))
		return
	}

	created, err := h.links.Create(r.Context(), link.CreateInput{
		TargetURL:    req.TargetURL,
		CustomCode:   req.CustomCode,
		RedirectKind: req.RedirectKind,
	})
	if err != nil {
		h.writeError(w, "create link", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toLinkResponse(*created))
}

// ListLinks handles GET /api/links?page&limit&search
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	query, fieldErrs := parseListQuery(r)
	if len(fieldErrs) > 0 {
		writeProblem(w, problemdetails.NewValidation(fieldErrs))
		return
	}

	page, err := h.links.List(r.Context(), query)
	if err != nil {
		h.writeError(w, "list links", err)
		return
	}

	writeJSON(w, http.StatusOK, h.toLinkList(page))
}

// GetLinkStats handles GET /api/links/{code}?days=N
func (h *Handler) GetLinkStats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	days := h.windowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeProblem(w, problemdetails.NewValidation([]problemdetails.FieldError{
				{Field: "days", Message: "must be an integer"},
			}))
			return
		}
		days = parsed
	}

	stats, err := h.stats.LinkStats(r.Context(), code, days)
	if err != nil {
		h.writeError(w, "link stats", err)
		return
	}

	writeJSON(w, http.StatusOK, LinkStatsResponse{LinkStats: stats, ShortURL: h.shortURL(stats.ShortCode)})
}

// DeleteLink handles DELETE /api/links/{code}
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.links.Delete(r.Context(), code); err != nil {
		h.writeError(w, "delete link", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordUptimeCheck handles POST /api/links/{code}/uptime-checks
func (h *Handler) RecordUptimeCheck(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req UptimeCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, problemdetails.New(
			http.StatusBadRequest,
			problemdetails.TypeInvalidRequest,
			"Invalid Request",
			"Request body must be valid JSON with a 'status' field",
		))
		return
	}

	check, err := h.links.RecordUptimeCheck(r.Context(), code, req.Status, req.CheckedAt)
	if err != nil {
		h.writeError(w, "record uptime check", err)
		return
	}

	writeJSON(w, http.StatusCreated, check)
}

// SystemStats handles GET /api/stats
func (h *Handler) SystemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.system.Snapshot(r.Context()))
}

// Healthz handles GET /healthz (liveness probe)
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz handles GET /readyz (readiness probe)
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.links.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Reason: "database unavailable: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	problem := problemFor(err)
	if problem.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	} else if errors.Is(err, domain.ErrShortCodeExists) {
		h.logger.Info(op+" rejected", zap.Error(err))
	}
	writeProblem(w, problem)
}

func parseListQuery(r *http.Request) (domain.ListQuery, []problemdetails.FieldError) {
	values := r.URL.Query()
	query := domain.ListQuery{
		Page:   pager.DefaultPage,
		Limit:  pager.DefaultLimit,
		Search: strings.TrimSpace(values.Get("search")),
	}

	var errs []problemdetails.FieldError
	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, problemdetails.FieldError{Field: "page", Message: "must be an integer >= 1"})
		}
		query.Page = n
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > pager.MaxLimit {
			errs = append(errs, problemdetails.FieldError{
				Field:   "limit",
				Message: "must be an integer between 1 and " + strconv.Itoa(pager.MaxLimit),
			})
		}
		query.Limit = n
	}
	return query, errs
}
