// Package memory provides a mutex-guarded in-process domain.LinkStore.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"linkboard/internal/domain"
	"linkboard/internal/pager"
)

var _ domain.LinkStore = (*Store)(nil)

// Store keeps links and their events in maps. Every mutation happens inside
// a single critical section, so click totals always match the event log.
type Store struct {
	mu sync.RWMutex

	nextLinkID  int64
	nextClickID int64
	nextCheckID int64

	links  map[int64]*domain.Link
	byCode map[string]int64
	clicks map[int64][]domain.ClickEvent
	checks map[int64][]domain.UptimeCheck

	now func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		links:  make(map[int64]*domain.Link),
		byCode: make(map[string]int64),
		clicks: make(map[int64][]domain.ClickEvent),
		checks: make(map[int64][]domain.UptimeCheck),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateLink(ctx context.Context, link *domain.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[link.ShortCode]; taken {
		return fmt.Errorf("%w: %s", domain.ErrShortCodeExists, link.ShortCode)
	}

	s.nextLinkID++
	link.ID = s.nextLinkID
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now().UTC()
	}
	if link.RedirectKind == "" {
		link.RedirectKind = domain.RedirectTemporary
	}
	link.TotalClicks = 0
	link.LastClicked = nil

	stored := *link
	s.links[link.ID] = &stored
	s.byCode[link.ShortCode] = link.ID
	return nil
}

func (s *Store) FindLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}
	return copyLink(s.links[id]), nil
}

func (s *Store) RecordClick(ctx context.Context, linkID int64, attrs domain.ClickAttributes) (*domain.ClickEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}

	now := s.now().UTC()
	s.nextClickID++
	click := domain.ClickEvent{
		ID:            s.nextClickID,
		LinkID:        linkID,
		CreatedAt:     now,
		DeviceType:    attrs.DeviceType,
		TrafficSource: attrs.TrafficSource,
		CountryCode:   attrs.CountryCode,
	}
	s.clicks[linkID] = append(s.clicks[linkID], click)

	link.TotalClicks++
	if link.LastClicked == nil || link.LastClicked.Before(now) {
		link.LastClicked = &now
	}
	click.LinkTotal = link.TotalClicks
	return &click, nil
}

func (s *Store) ListLinks(ctx context.Context, query domain.ListQuery) (*domain.Page[domain.Link], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := lo.MapToSlice(s.links, func(_ int64, l *domain.Link) domain.Link { return *copyLink(l) })
	s.mu.RUnlock()

	return pager.Paginate(all, query)
}

func (s *Store) DeleteLink(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return domain.ErrLinkNotFound
	}
	delete(s.byCode, code)
	delete(s.links, id)
	delete(s.clicks, id)
	delete(s.checks, id)
	return nil
}

func (s *Store) GetEventsInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.ClickEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	events := lo.Filter(s.clicks[linkID], func(e domain.ClickEvent, _ int) bool {
		return inRange(e.CreatedAt, from, to)
	})
	s.mu.RUnlock()

	slices.SortStableFunc(events, func(a, b domain.ClickEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return events, nil
}

func (s *Store) GetUptimeChecksInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.UptimeCheck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	checks := lo.Filter(s.checks[linkID], func(c domain.UptimeCheck, _ int) bool {
		return inRange(c.CreatedAt, from, to)
	})
	s.mu.RUnlock()

	// Checks may be ingested out of order.
	slices.SortStableFunc(checks, func(a, b domain.UptimeCheck) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return checks, nil
}

func (s *Store) RecordUptimeCheck(ctx context.Context, linkID int64, status domain.UptimeStatus, at time.Time) (*domain.UptimeCheck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[linkID]; !ok {
		return nil, domain.ErrLinkNotFound
	}
	if at.IsZero() {
		at = s.now()
	}

	s.nextCheckID++
	check := domain.UptimeCheck{ID: s.nextCheckID, LinkID: linkID, Status: status, CreatedAt: at.UTC()}
	s.checks[linkID] = append(s.checks[linkID], check)
	return &check, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func copyLink(l *domain.Link) *domain.Link {
	c := *l
	if l.LastClicked != nil {
		t := *l.LastClicked
		c.LastClicked = &t
	}
	return &c
}
