package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkboard/internal/analytics"
	"linkboard/internal/analytics/enrichment"
	httphandler "linkboard/internal/delivery/http"
	"linkboard/internal/domain"
	"linkboard/internal/domain/event"
	"linkboard/internal/link"
	"linkboard/internal/redirect"
	"linkboard/internal/repository/memory"
	"linkboard/internal/testutil/mocks"
	"linkboard/internal/testutil/storetest"
	"linkboard/pkg/problemdetails"
)

var testNow = time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	router http.Handler
	store  domain.LinkStore
	clock  *storetest.Clock
	pub    *mocks.RecordingPublisher
}

type fixtureConfig struct {
	store     domain.LinkStore
	redirects httphandler.RedirectSource
	resolver  []redirect.Option
	rateLimit int
}

func newFixture(t *testing.T, cfg fixtureConfig) *fixture {
	t.Helper()
	clock := storetest.NewClock(testNow)
	if cfg.store == nil {
		cfg.store = memory.New(memory.WithClock(clock.Now))
	}
	if cfg.rateLimit == 0 {
		cfg.rateLimit = 1000
	}
	logger := zap.NewNop()
	pub := &mocks.RecordingPublisher{}

	links := link.NewService(cfg.store, pub, logger, link.WithClock(clock.Now))
	stats := analytics.NewService(cfg.store, logger, clock.Now)
	if cfg.redirects == nil {
		opts := append([]redirect.Option{redirect.WithPublisher(pub)}, cfg.resolver...)
		cfg.redirects = redirect.NewResolver(cfg.store, logger, opts...)
	}
	system := httphandler.NewSystemMonitor(links, logger, testNow.Add(-90*time.Minute), clock.Now)
	handler := httphandler.NewHandler(links, stats, cfg.redirects, system, logger, "http://localhost:8080/", 7)
	router := httphandler.NewRouter(handler, logger, httphandler.NewRateLimiter(cfg.rateLimit), 0)

	return &fixture{router: router, store: cfg.store, clock: clock, pub: pub}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) createLink(t *testing.T, body map[string]string) httphandler.LinkResponse {
	t.Helper()
	rr := f.do(http.MethodPost, "/api/links", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp httphandler.LinkResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) problemdetails.ProblemDetail {
	t.Helper()
	assert.Equal(t, problemdetails.ContentType, rr.Header().Get("Content-Type"))
	var p problemdetails.ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&p))
	return p
}

// stubRedirects returns a fixed outcome for every code.
type stubRedirects struct {
	outcome redirect.Outcome
}

func (s stubRedirects) Resolve(context.Context, string, enrichment.RequestMeta) redirect.Outcome {
	return s.outcome
}

func TestCreateLink_ValidRequest_Returns201(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	// Act
	rr := f.do(http.MethodPost, "/api/links", map[string]string{"targetUrl": "https://example.com/docs"})

	// Assert
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp httphandler.LinkResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.ShortCode, domain.DefaultShortCodeLength)
	assert.Equal(t, "http://localhost:8080/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, "https://example.com/docs", resp.TargetURL)
	assert.Equal(t, domain.RedirectTemporary, resp.RedirectKind)
	assert.Zero(t, resp.TotalClicks)
	assert.Nil(t, resp.LastClicked)
	assert.Equal(t, []string{event.LinkCreatedName}, f.pub.Names())
}

func TestCreateLink_CustomCodeTaken_Returns409(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://a.example", "customCode": "abc123"})

	rr := f.do(http.MethodPost, "/api/links", map[string]string{"targetUrl": "https://b.example", "customCode": "abc123"})

	assert.Equal(t, http.StatusConflict, rr.Code)
	p := decodeProblem(t, rr)
	assert.Contains(t, p.Type, problemdetails.TypeConflict)
}

func TestCreateLink_BadRequests_Return400(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantType string
	}{
		{name: "invalid json", body: "not json", wantType: problemdetails.TypeInvalidRequest},
		{name: "missing target", body: map[string]string{}, wantType: problemdetails.TypeValidationError},
		{name: "relative url", body: map[string]string{"targetUrl": "/relative"}, wantType: problemdetails.TypeInvalidURL},
		{name: "javascript url", body: map[string]string{"targetUrl": "javascript:alert(1)"}, wantType: problemdetails.TypeInvalidURL},
		{name: "bad custom code", body: map[string]string{"targetUrl": "https://example.com", "customCode": "no spaces"}, wantType: problemdetails.TypeInvalidCode},
		{name: "bad redirect kind", body: map[string]string{"targetUrl": "https://example.com", "redirectKind": "forever"}, wantType: problemdetails.TypeValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureConfig{})

			rr := f.do(http.MethodPost, "/api/links", tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			p := decodeProblem(t, rr)
			assert.Contains(t, p.Type, tt.wantType)
		})
	}
}

func TestCreateLink_ReservedCustomCode_Returns400(t *testing.T) {
	for _, code := range []string{"api", "healthz", "readyz"} {
		t.Run(code, func(t *testing.T) {
			f := newFixture(t, fixtureConfig{})

			rr := f.do(http.MethodPost, "/api/links", map[string]string{"targetUrl": "https://example.com", "customCode": code})

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			p := decodeProblem(t, rr)
			assert.Contains(t, p.Type, problemdetails.TypeInvalidCode)
		})
	}
}

func TestListLinks_DefaultsAndPagination(t *testing.T) {
	// Setup
	f := newFixture(t, fixtureConfig{})
	for _, code := range []string{"first", "second", "third"} {
		f.createLink(t, map[string]string{"targetUrl": "https://example.com/" + code, "customCode": code})
		f.clock.Advance(time.Minute)
	}

	// Act
	rr := f.do(http.MethodGet, "/api/links?page=1&limit=2", nil)

	// Assert
	require.Equal(t, http.StatusOK, rr.Code)
	var resp httphandler.LinkListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "third", resp.Data[0].ShortCode)
	assert.Equal(t, "second", resp.Data[1].ShortCode)
	assert.Equal(t, domain.Pagination{Total: 3, Page: 1, Limit: 2, TotalPages: 2, HasNext: true, HasPrev: false}, resp.Pagination)
}

func TestListLinks_Search(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://golang.org", "customCode": "golang"})
	f.createLink(t, map[string]string{"targetUrl": "https://rust-lang.org", "customCode": "rust"})

	rr := f.do(http.MethodGet, "/api/links?search=GOLANG", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp httphandler.LinkListResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "golang", resp.Data[0].ShortCode)
	assert.Equal(t, int64(1), resp.Pagination.Total)
}

func TestListLinks_EmptyStore_ReturnsEmptyArray(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	rr := f.do(http.MethodGet, "/api/links", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"data":[]`)
}

func TestListLinks_InvalidQuery_Returns400(t *testing.T) {
	for _, query := range []string{"limit=0", "limit=101", "page=0", "page=abc", "limit=-5"} {
		t.Run(query, func(t *testing.T) {
			f := newFixture(t, fixtureConfig{})

			rr := f.do(http.MethodGet, "/api/links?"+query, nil)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			p := decodeProblem(t, rr)
			assert.NotEmpty(t, p.Errors)
		})
	}
}

func TestRedirect_RecordsClickAndRedirects(t *testing.T) {
	// Setup
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://example.com/landing", "customCode": "abc123"})

	// Act
	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148")
	req.Header.Set("Referer", "https://www.google.com/search?q=x")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	// Assert
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com/landing", rr.Header().Get("Location"))

	stored, err := f.store.FindLinkByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.TotalClicks)
	require.NotNil(t, stored.LastClicked)

	from, to := analytics.Window(1, testNow)
	clicks, err := f.store.GetEventsInRange(context.Background(), stored.ID, from, to)
	require.NoError(t, err)
	require.Len(t, clicks, 1)
	assert.Equal(t, "Mobile", clicks[0].DeviceType)
	assert.Equal(t, "search", clicks[0].TrafficSource)
	assert.Contains(t, f.pub.Names(), event.LinkClickedName)
}

func TestRedirect_StatusFollowsRedirectKind(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		preserve bool
		want     int
	}{
		{name: "temporary", kind: "temporary", want: http.StatusFound},
		{name: "permanent", kind: "permanent", want: http.StatusMovedPermanently},
		{name: "temporary preserving method", kind: "temporary", preserve: true, want: http.StatusTemporaryRedirect},
		{name: "permanent preserving method", kind: "permanent", preserve: true, want: http.StatusPermanentRedirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureConfig{resolver: []redirect.Option{redirect.WithPreserveMethod(tt.preserve)}})
			f.createLink(t, map[string]string{"targetUrl": "https://example.com", "customCode": "code1", "redirectKind": tt.kind})

			rr := f.do(http.MethodGet, "/code1", nil)

			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, "https://example.com", rr.Header().Get("Location"))
		})
	}
}

func TestRedirect_UnknownCode_RendersNotFoundPage(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	rr := f.do(http.MethodGet, "/nope42", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Link not found")
	assert.Contains(t, rr.Body.String(), "/nope42")
}

func TestRedirect_StoreFailure_RendersUnavailablePage(t *testing.T) {
	store := mocks.NewMockLinkStore(t)
	store.On("FindLinkByCode", mock.Anything, "abc123").Return(nil, errors.New("connection refused")).Once()
	f := newFixture(t, fixtureConfig{store: store})

	rr := f.do(http.MethodGet, "/abc123", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "could not resolve this link")
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestRedirect_MalformedUpstream_RendersBrokenLinkPage(t *testing.T) {
	f := newFixture(t, fixtureConfig{
		redirects: stubRedirects{outcome: redirect.MalformedRedirect("abc123", http.StatusFound, "missing Location header")},
	})

	rr := f.do(http.MethodGet, "/abc123", nil)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "misconfigured")
}

func TestRedirect_EscapesCodeInPage(t *testing.T) {
	f := newFixture(t, fixtureConfig{})

	rr := f.do(http.MethodGet, "/%3Cscript%3E", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<script>")
}

func TestGetLinkStats_ReturnsDailySeries(t *testing.T) {
	// Setup
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://example.com", "customCode": "abc123"})
	f.do(http.MethodGet, "/abc123", nil)
	f.do(http.MethodPost, "/api/links/abc123/uptime-checks", map[string]string{"status": "UP"})

	// Act
	rr := f.do(http.MethodGet, "/api/links/abc123", nil)

	// Assert
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		ShortCode   string                  `json:"shortCode"`
		ShortURL    string                  `json:"shortUrl"`
		TotalClicks int64                   `json:"totalClicks"`
		WindowDays  int                     `json:"windowDays"`
		Clicks      []domain.ClickEvent     `json:"clicks"`
		DailyClicks []analytics.DailyBucket `json:"dailyClicks"`
		DailyUptime []analytics.DailyUptime `json:"dailyUptime"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "abc123", resp.ShortCode)
	assert.Equal(t, "http://localhost:8080/abc123", resp.ShortURL)
	assert.Equal(t, int64(1), resp.TotalClicks)
	assert.Equal(t, 7, resp.WindowDays)
	assert.Len(t, resp.Clicks, 1)
	require.Len(t, resp.DailyClicks, 7)
	assert.Equal(t, "2024-05-14", resp.DailyClicks[6].Date)
	assert.Equal(t, int64(1), resp.DailyClicks[6].Count)
	require.Len(t, resp.DailyUptime, 7)
	require.NotNil(t, resp.DailyUptime[6].UptimePercentage)
	assert.InDelta(t, 100.0, *resp.DailyUptime[6].UptimePercentage, 0.001)
	assert.Nil(t, resp.DailyUptime[0].UptimePercentage)
}

func TestGetLinkStats_CustomWindow(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://example.com", "customCode": "abc123"})

	rr := f.do(http.MethodGet, "/api/links/abc123?days=3", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp analytics.LinkStats
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.DailyClicks, 3)
	assert.Equal(t, "2024-05-12", resp.DailyClicks[0].Date)
}

func TestGetLinkStats_Errors(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://example.com", "customCode": "abc123"})

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/links/missing", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/links/abc123?days=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/links/abc123?days=week", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/links/abc123?days=91", nil).Code)
}

func TestDeleteLink_ThenRedirectIsNotFound(t *testing.T) {
	// Setup
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://example.com", "customCode": "abc123"})
	f.do(http.MethodGet, "/abc123", nil)

	// Act
	rr := f.do(http.MethodDelete, "/api/links/abc123", nil)

	// Assert
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/abc123", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/links/abc123", nil).Code)
	assert.Contains(t, f.pub.Names(), event.LinkDeletedName)
}

func TestRecordUptimeCheck(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://example.com", "customCode": "abc123"})

	t.Run("created", func(t *testing.T) {
		rr := f.do(http.MethodPost, "/api/links/abc123/uptime-checks", map[string]any{
			"status":    "down",
			"checkedAt": testNow.Add(-time.Hour),
		})

		require.Equal(t, http.StatusCreated, rr.Code)
		var check domain.UptimeCheck
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&check))
		assert.Equal(t, domain.StatusDown, check.Status)
		assert.True(t, check.CreatedAt.Equal(testNow.Add(-time.Hour)))
	})

	t.Run("invalid status", func(t *testing.T) {
		rr := f.do(http.MethodPost, "/api/links/abc123/uptime-checks", map[string]string{"status": "maybe"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown link", func(t *testing.T) {
		rr := f.do(http.MethodPost, "/api/links/missing/uptime-checks", map[string]string{"status": "UP"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		rr := f.do(http.MethodPost, "/api/links/abc123/uptime-checks", "{")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSystemStats(t *testing.T) {
	f := newFixture(t, fixtureConfig{})
	f.createLink(t, map[string]string{"targetUrl": "https://example.com"})
	f.createLink(t, map[string]string{"targetUrl": "https://example.org"})

	rr := f.do(http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp httphandler.SystemStatsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.True(t, resp.Database.Connected)
	assert.Equal(t, int64(2), resp.TotalLinks)
	assert.Equal(t, int64(5400), resp.Uptime.Seconds)
	assert.Equal(t, "1h 30m", resp.Uptime.Formatted)
}

func TestSystemStats_DatabaseDown(t *testing.T) {
	store := mocks.NewMockLinkStore(t)
	store.On("Ping", mock.Anything).Return(errors.New("database is closed"))
	f := newFixture(t, fixtureConfig{store: store})

	rr := f.do(http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp httphandler.SystemStatsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.OK)
	assert.False(t, resp.Database.Connected)
}

func TestReadyz_DatabaseDown_Returns503(t *testing.T) {
	store := mocks.NewMockLinkStore(t)
	store.On("Ping", mock.Anything).Return(errors.New("database is closed"))
	f := newFixture(t, fixtureConfig{store: store})

	rr := f.do(http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var resp httphandler.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "unavailable", resp.Status)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0m 42s", httphandler.FormatUptime(42*time.Second))
	assert.Equal(t, "2h 5m", httphandler.FormatUptime(2*time.Hour+5*time.Minute+9*time.Second))
	assert.Equal(t, "3d 4h 0m", httphandler.FormatUptime(76*time.Hour))
	assert.Equal(t, "0m 0s", httphandler.FormatUptime(-time.Second))
}
