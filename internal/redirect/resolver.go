package redirect

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"linkboard/internal/analytics/enrichment"
	"linkboard/internal/domain"
	"linkboard/internal/domain/event"
)

// Store is the part of the link store the resolver needs.
type Store interface {
	FindLinkByCode(ctx context.Context, code string) (*domain.Link, error)
	RecordClick(ctx context.Context, linkID int64, attrs domain.ClickAttributes) (*domain.ClickEvent, error)
}

// RouteFinder is implemented by stores that can look up the routing fields of
// a link (id, target, kind) more cheaply than the full link. Click totals on
// the returned link are not meaningful.
type RouteFinder interface {
	FindRoute(ctx context.Context, code string) (*domain.Link, error)
}

// Resolver turns short codes into redirect outcomes, recording a click before
// every successful redirect.
type Resolver struct {
	store          Store
	enricher       *enrichment.Enricher
	publisher      event.Publisher
	logger         *zap.Logger
	preserveMethod bool
}

type Option func(*Resolver)

// WithPreserveMethod makes the resolver answer 307/308 instead of 302/301.
func WithPreserveMethod(preserve bool) Option {
	return func(r *Resolver) { r.preserveMethod = preserve }
}

func WithEnricher(e *enrichment.Enricher) Option {
	return func(r *Resolver) { r.enricher = e }
}

func WithPublisher(p event.Publisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

func NewResolver(store Store, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		store:     store,
		enricher:  enrichment.NewEnricher(nil),
		publisher: event.NopPublisher{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up code and records a click. A failed lookup is never reported
// as NotFound, and no redirect is returned unless the click was stored.
func (r *Resolver) Resolve(ctx context.Context, code string, meta enrichment.RequestMeta) Outcome {
	lookup := r.store.FindLinkByCode
	if rf, ok := r.store.(RouteFinder); ok {
		lookup = rf.FindRoute
	}

	link, err := lookup(ctx, code)
	if errors.Is(err, domain.ErrLinkNotFound) {
		return NotFound(code)
	}
	if err != nil {
		r.logger.Error("link lookup failed", zap.String("short_code", code), zap.Error(err))
		return UpstreamError(code, "link lookup failed")
	}

	attrs := r.enricher.Enrich(meta)
	click, err := r.store.RecordClick(ctx, link.ID, attrs)
	if errors.Is(err, domain.ErrLinkNotFound) {
		// deleted between lookup and record
		return NotFound(code)
	}
	if err != nil {
		r.logger.Error("failed to record click", zap.String("short_code", code), zap.Error(err))
		return UpstreamError(code, "failed to record click")
	}

	r.publishClick(ctx, link, click, attrs)

	out := Redirect(code, link.TargetURL, link.RedirectKind.StatusCode(r.preserveMethod))
	out.Click = click
	return out
}

// publishClick emits link.clicked and, when a milestone is crossed,
// link.milestone_reached. Failures are logged only.
func (r *Resolver) publishClick(ctx context.Context, link *domain.Link, click *domain.ClickEvent, attrs domain.ClickAttributes) {
	total := link.TotalClicks + 1
	if click != nil && click.LinkTotal > 0 {
		total = click.LinkTotal
	}
	clicked := event.NewLinkClicked(link.ID, link.ShortCode, total)
	clicked.DeviceType = attrs.DeviceType
	clicked.TrafficSource = attrs.TrafficSource
	clicked.CountryCode = attrs.CountryCode
	if click != nil {
		clicked.OccurredAtT = click.CreatedAt
	}

	events := []event.Event{clicked}
	if m := event.CheckMilestone(total-1, total); m > 0 {
		events = append(events, event.NewMilestoneReached(link.ShortCode, m, total))
	}
	for _, e := range events {
		if err := r.publisher.Publish(ctx, e); err != nil {
			r.logger.Warn("failed to publish event",
				zap.String("event_name", e.EventName()),
				zap.String("short_code", link.ShortCode),
				zap.Error(err))
		}
	}
}
