package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// page is a human-readable response for a redirect that could not be served.
type page struct {
	Status  int
	Title   string
	Heading string
	Message string
	Code    string
	Retry   bool
}

func notFoundPage(code string) page {
	return page{
		Status:  http.StatusNotFound,
		Title:   "Link not found",
		Heading: "Link not found",
		Message: "There is no short link at",
		Code:    code,
	}
}

func malformedPage(code string) page {
	return page{
		Status:  http.StatusBadGateway,
		Title:   "Broken link",
		Heading: "This link is misconfigured",
		Message: "The redirect service answered without a usable destination for",
		Code:    code,
	}
}

func unavailablePage(code string) page {
	return page{
		Status:  http.StatusServiceUnavailable,
		Title:   "Temporarily unavailable",
		Heading: "We could not resolve this link right now",
		Message: "The link store did not answer in time for",
		Code:    code,
		Retry:   true,
	}
}

func renderPage(w http.ResponseWriter, logger *zap.Logger, p page) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		logger.Error("failed to render page", zap.Error(err))
		http.Error(w, p.Title, p.Status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Status)
	_, _ = buf.WriteTo(w)
}
