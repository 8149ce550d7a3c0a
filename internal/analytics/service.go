package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"linkboard/internal/domain"
)

const (
	DefaultWindowDays = 7
	MaxWindowDays     = 90
)

// EventReader is the read side of the link store used for statistics.
type EventReader interface {
	FindLinkByCode(ctx context.Context, code string) (*domain.Link, error)
	GetEventsInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.ClickEvent, error)
	GetUptimeChecksInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.UptimeCheck, error)
}

// LinkStats is a link together with its raw events and daily rollups.
// Degraded is set when event history could not be read and the
// corresponding series were left empty.
type LinkStats struct {
	domain.Link
	WindowDays   int                  `json:"windowDays"`
	Clicks       []domain.ClickEvent  `json:"clicks"`
	UptimeChecks []domain.UptimeCheck `json:"uptimeChecks"`
	DailyClicks  []DailyBucket        `json:"dailyClicks"`
	DailyUptime  []DailyUptime        `json:"dailyUptime"`
	Breakdowns   Breakdowns           `json:"breakdowns"`
	Degraded     bool                 `json:"degraded"`
}

type Service struct {
	store  EventReader
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a statistics service. A nil clock defaults to time.Now.
func NewService(store EventReader, logger *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now}
}

// ValidateWindow rejects window sizes outside [1, MaxWindowDays].
func ValidateWindow(days int) error {
	if days < 1 || days > MaxWindowDays {
		return fmt.Errorf("%w: days must be between 1 and %d, got %d", domain.ErrValidation, MaxWindowDays, days)
	}
	return nil
}

// LinkStats loads a link and rolls up its history over the last windowDays
// days. A missing link or failing link lookup is returned as an error; failing
// event reads only degrade the result.
func (s *Service) LinkStats(ctx context.Context, code string, windowDays int) (*LinkStats, error) {
	if err := ValidateWindow(windowDays); err != nil {
		return nil, err
	}

	link, err := s.store.FindLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from, to := Window(windowDays, now)
	stats := &LinkStats{
		Link:         *link,
		WindowDays:   windowDays,
		Clicks:       []domain.ClickEvent{},
		UptimeChecks: []domain.UptimeCheck{},
		DailyClicks:  []DailyBucket{},
		DailyUptime:  []DailyUptime{},
		Breakdowns:   BreakDown(nil),
	}

	clicks, err := s.store.GetEventsInRange(ctx, link.ID, from, to)
	if err != nil {
		s.logger.Warn("failed to read click events, returning empty series",
			zap.String("short_code", code), zap.Error(err))
		stats.Degraded = true
	} else {
		stats.Clicks = nonNil(clicks)
		stats.DailyClicks = BucketClicks(clicks, windowDays, now)
		stats.Breakdowns = BreakDown(clicks)
	}

	checks, err := s.store.GetUptimeChecksInRange(ctx, link.ID, from, to)
	if err != nil {
		s.logger.Warn("failed to read uptime checks, returning empty series",
			zap.String("short_code", code), zap.Error(err))
		stats.Degraded = true
	} else {
		stats.UptimeChecks = nonNil(checks)
		stats.DailyUptime = BucketUptime(checks, windowDays, now)
	}

	return stats, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
