package domain

import (
	"context"
	"time"
)

// LinkStore is the data-access collaborator for links and their events.
// This interface is defined in the domain layer and implemented by the
// repository packages (SQL, in-memory, cached decorator).
type LinkStore interface {
	// CreateLink persists a new link and fills in its ID and CreatedAt.
	// Returns ErrShortCodeExists if the short code is taken.
	CreateLink(ctx context.Context, link *Link) error

	// FindLinkByCode returns the live link for code, or ErrLinkNotFound.
	FindLinkByCode(ctx context.Context, code string) (*Link, error)

	// RecordClick stores a click event and updates TotalClicks and LastClicked
	// on the owning link atomically, reporting the new total in LinkTotal.
	// Returns ErrLinkNotFound if the link no longer exists.
	RecordClick(ctx context.Context, linkID int64, attrs ClickAttributes) (*ClickEvent, error)

	// ListLinks returns one page of links matching the query.
	ListLinks(ctx context.Context, query ListQuery) (*Page[Link], error)

	// DeleteLink removes a link and all of its click events and uptime checks.
	// Returns ErrLinkNotFound if no such link exists.
	DeleteLink(ctx context.Context, code string) error

	// GetEventsInRange returns click events with createdAt in [from, to).
	GetEventsInRange(ctx context.Context, linkID int64, from, to time.Time) ([]ClickEvent, error)

	// GetUptimeChecksInRange returns uptime checks with createdAt in [from, to).
	GetUptimeChecksInRange(ctx context.Context, linkID int64, from, to time.Time) ([]UptimeCheck, error)

	// RecordUptimeCheck appends a probe result for a link.
	RecordUptimeCheck(ctx context.Context, linkID int64, status UptimeStatus, at time.Time) (*UptimeCheck, error)

	// Ping checks connectivity to the underlying storage.
	Ping(ctx context.Context) error
}
