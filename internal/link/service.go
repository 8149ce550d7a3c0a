// Package link implements the link management use cases: creating, listing,
// fetching and deleting short links, and recording uptime checks against them.
package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkboard/internal/domain"
	"linkboard/internal/domain/event"
	"linkboard/internal/pager"

	"go.uber.org/zap"
)

const maxRetries = 5

// CreateInput is the request to shorten a URL.
type CreateInput struct {
	TargetURL    string `json:"targetUrl"`
	CustomCode   string `json:"customCode"`
	RedirectKind string `json:"redirectKind"`
}

// Service implements the link use cases on top of a domain.LinkStore.
type Service struct {
	store      domain.LinkStore
	publisher  event.Publisher
	logger     *zap.Logger
	now        func() time.Time
	codeLength int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for uptime checks without an explicit timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeLength sets the length of generated short codes.
func WithCodeLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// NewService creates a link service. A nil publisher disables lifecycle events.
func NewService(store domain.LinkStore, publisher event.Publisher, logger *zap.Logger, opts ...Option) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	s := &Service{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		codeLength: domain.DefaultShortCodeLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the input and stores a new link. Without a custom code a
// random one is generated, retrying on collision. A taken custom code yields
// domain.ErrShortCodeExists.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Link, error) {
	target, err := domain.NewTargetURL(in.TargetURL)
	if err != nil {
		return nil, err
	}
	kind, err := domain.ParseRedirectKind(in.RedirectKind)
	if err != nil {
		return nil, err
	}

	var link *domain.Link
	if in.CustomCode != "" {
		code, err := domain.NewShortCode(in.CustomCode)
		if err != nil {
			return nil, err
		}
		link = &domain.Link{ShortCode: code.String(), TargetURL: target.String(), RedirectKind: kind}
		if err := s.store.CreateLink(ctx, link); err != nil {
			return nil, err
		}
	} else {
		link, err = s.createWithGeneratedCode(ctx, target.String(), kind)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("link created",
		zap.String("short_code", link.ShortCode),
		zap.String("target_url", link.TargetURL),
		zap.String("redirect_kind", string(link.RedirectKind)),
	)
	s.publish(ctx, event.NewLinkCreated(link.ID, link.ShortCode, link.TargetURL, string(link.RedirectKind)))
	return link, nil
}

func (s *Service) createWithGeneratedCode(ctx context.Context, target string, kind domain.RedirectKind) (*domain.Link, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code, err := domain.GenerateShortCode(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}

		link := &domain.Link{ShortCode: code.String(), TargetURL: target, RedirectKind: kind}
		err = s.store.CreateLink(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, domain.ErrShortCodeExists) {
			return nil, err
		}
		s.logger.Debug("short code collision, retrying",
			zap.String("short_code", code.String()),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("%w: no free code after %d attempts", domain.ErrShortCodeExists, maxRetries)
}

// List returns one page of links, newest first.
func (s *Service) List(ctx context.Context, query domain.ListQuery) (*domain.Page[domain.Link], error) {
	if err := pager.Validate(query); err != nil {
		return nil, err
	}
	return s.store.ListLinks(ctx, query)
}

// Count returns the total number of links matching search.
func (s *Service) Count(ctx context.Context, search string) (int64, error) {
	page, err := s.store.ListLinks(ctx, domain.ListQuery{Page: 1, Limit: 1, Search: search})
	if err != nil {
		return 0, err
	}
	return page.Pagination.Total, nil
}

// Get returns the link for code.
func (s *Service) Get(ctx context.Context, code string) (*domain.Link, error) {
	return s.store.FindLinkByCode(ctx, code)
}

// Delete removes the link and all its recorded events.
func (s *Service) Delete(ctx context.Context, code string) error {
	if err := s.store.DeleteLink(ctx, code); err != nil {
		return err
	}
	s.logger.Info("link deleted", zap.String("short_code", code))
	s.publish(ctx, event.NewLinkDeleted(code))
	return nil
}

// RecordUptimeCheck stores an UP/DOWN observation for the link. A nil at
// records the check at the current time.
func (s *Service) RecordUptimeCheck(ctx context.Context, code, status string, at *time.Time) (*domain.UptimeCheck, error) {
	parsed, err := domain.ParseUptimeStatus(status)
	if err != nil {
		return nil, err
	}
	link, err := s.store.FindLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	checkedAt := s.now().UTC()
	if at != nil {
		checkedAt = at.UTC()
	}
	return s.store.RecordUptimeCheck(ctx, link.ID, parsed, checkedAt)
}

// Ping reports whether the underlying store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event", e.EventName()),
			zap.String("short_code", e.AggregateID()),
			zap.Error(err),
		)
	}
}
