package cache

import (
	"context"
	"errors"
	"time"

	"linkboard/internal/domain"
)

var _ domain.LinkStore = (*Store)(nil)

// Store decorates a LinkStore with a route cache for the redirect path.
// FindRoute is cache-aside; every other method, FindLinkByCode included,
// goes straight to the underlying store so totals are never stale.
type Store struct {
	next  domain.LinkStore
	cache LinkCache
}

func NewStore(next domain.LinkStore, cache LinkCache) *Store {
	return &Store{next: next, cache: cache}
}

func (s *Store) CreateLink(ctx context.Context, link *domain.Link) error {
	return s.next.CreateLink(ctx, link)
}

func (s *Store) FindLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	return s.next.FindLinkByCode(ctx, code)
}

// FindRoute returns the routing fields of the link for code. Click totals on
// the result are zero when it came from the cache.
func (s *Store) FindRoute(ctx context.Context, code string) (*domain.Link, error) {
	if link, ok := s.cache.Get(ctx, code); ok {
		return link, nil
	}

	// Read the generation before the store so a delete in between is seen.
	gen, genOK := s.cache.Generation(ctx, code)
	link, err := s.next.FindLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if genOK {
		s.cache.Fill(ctx, link, gen)
	}
	return link, nil
}

// RecordClick leaves the cache alone; cached routes carry no totals.
func (s *Store) RecordClick(ctx context.Context, linkID int64, attrs domain.ClickAttributes) (*domain.ClickEvent, error) {
	return s.next.RecordClick(ctx, linkID, attrs)
}

func (s *Store) ListLinks(ctx context.Context, query domain.ListQuery) (*domain.Page[domain.Link], error) {
	return s.next.ListLinks(ctx, query)
}

// DeleteLink forgets the route after the delete commits. A not-found delete
// forgets too, in case the entry outlived a delete made elsewhere.
func (s *Store) DeleteLink(ctx context.Context, code string) error {
	err := s.next.DeleteLink(ctx, code)
	if err == nil || errors.Is(err, domain.ErrLinkNotFound) {
		s.cache.Forget(ctx, code)
	}
	return err
}

func (s *Store) GetEventsInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.ClickEvent, error) {
	return s.next.GetEventsInRange(ctx, linkID, from, to)
}

func (s *Store) GetUptimeChecksInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.UptimeCheck, error) {
	return s.next.GetUptimeChecksInRange(ctx, linkID, from, to)
}

func (s *Store) RecordUptimeCheck(ctx context.Context, linkID int64, status domain.UptimeStatus, at time.Time) (*domain.UptimeCheck, error) {
	return s.next.RecordUptimeCheck(ctx, linkID, status, at)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
