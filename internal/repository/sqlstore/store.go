// Package sqlstore implements domain.LinkStore on top of database/sql for
// SQLite, libSQL and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"linkboard/internal/database"
	"linkboard/internal/domain"
	"linkboard/internal/pager"
)

// Ensure Store implements domain.LinkStore at compile time
var _ domain.LinkStore = (*Store)(nil)

// Store is a SQL-backed link store. Timestamps are persisted as Unix
// milliseconds so range queries compare integers on every engine.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for createdAt and click times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sql.DB, dialect database.Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialect, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateLink(ctx context.Context, link *domain.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now()
	}
	link.CreatedAt = fromMillis(toMillis(link.CreatedAt))
	if link.RedirectKind == "" {
		link.RedirectKind = domain.RedirectTemporary
	}

	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO links (short_code, target_url, target_url_folded, redirect_kind, created_at, total_clicks)
		VALUES (?, ?, ?, ?, ?, 0)
		RETURNING id`),
		link.ShortCode, link.TargetURL, pager.Fold(link.TargetURL), string(link.RedirectKind), toMillis(link.CreatedAt),
	).Scan(&link.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrShortCodeExists, link.ShortCode)
	}
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}

	link.TotalClicks = 0
	link.LastClicked = nil
	return nil
}

func (s *Store) FindLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, short_code, target_url, redirect_kind, created_at, total_clicks, last_clicked
		FROM links WHERE short_code = ?`), code)

	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find link %q: %w", code, err)
	}
	return link, nil
}

// RecordClick updates the link totals and inserts the click in one
// transaction. The update runs first so a concurrently deleted link is
// detected by its affected-row count.
func (s *Store) RecordClick(ctx context.Context, linkID int64, attrs domain.ClickAttributes) (*domain.ClickEvent, error) {
	now := fromMillis(toMillis(s.now()))
	click := &domain.ClickEvent{
		LinkID:        linkID,
		CreatedAt:     now,
		DeviceType:    attrs.DeviceType,
		TrafficSource: attrs.TrafficSource,
		CountryCode:   attrs.CountryCode,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, s.q(`
			UPDATE links
			SET total_clicks = total_clicks + 1,
			    last_clicked = CASE WHEN last_clicked IS NULL OR last_clicked < ? THEN ? ELSE last_clicked END
			WHERE id = ?
			RETURNING total_clicks`),
			toMillis(now), toMillis(now), linkID,
		).Scan(&click.LinkTotal)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrLinkNotFound
		}
		if err != nil {
			return fmt.Errorf("update link totals: %w", err)
		}

		return tx.QueryRowContext(ctx, s.q(`
			INSERT INTO click_events (link_id, created_at, device_type, traffic_source, country_code)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`),
			linkID, toMillis(now), attrs.DeviceType, attrs.TrafficSource, attrs.CountryCode,
		).Scan(&click.ID)
	})
	if err != nil {
		return nil, err
	}
	return click, nil
}

// ListLinks filters with a LIKE on the folded short code or target URL and
// orders by createdAt then id, both descending. Short codes are ASCII, so
// LOWER folds them the same on every engine.
func (s *Store) ListLinks(ctx context.Context, query domain.ListQuery) (*domain.Page[domain.Link], error) {
	if err := pager.Validate(query); err != nil {
		return nil, err
	}

	where := ""
	var args []any
	if query.Search != "" {
		pattern := "%" + escapeLike(pager.Fold(query.Search)) + "%"
		where = ` WHERE LOWER(short_code) LIKE ? ESCAPE '\' OR target_url_folded LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM links"+where), args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count links: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, short_code, target_url, redirect_kind, created_at, total_clicks, last_clicked
		FROM links`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`),
		append(args, query.Limit, pager.Offset(query))...)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := make([]domain.Link, 0, query.Limit)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.Page[domain.Link]{
		Data:       links,
		Pagination: pager.NewPagination(total, query.Page, query.Limit),
	}, nil
}

// DeleteLink removes the link together with its clicks and uptime checks.
// Children are deleted explicitly so the cascade does not depend on the
// engine enforcing foreign keys.
func (s *Store) DeleteLink(ctx context.Context, code string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, s.q("SELECT id FROM links WHERE short_code = ?"), code).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrLinkNotFound
		}
		if err != nil {
			return fmt.Errorf("find link %q: %w", code, err)
		}

		for _, stmt := range []string{
			"DELETE FROM click_events WHERE link_id = ?",
			"DELETE FROM uptime_checks WHERE link_id = ?",
			"DELETE FROM links WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
				return fmt.Errorf("delete link %q: %w", code, err)
			}
		}
		return nil
	})
}

func (s *Store) GetEventsInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.ClickEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, link_id, created_at, device_type, traffic_source, country_code
		FROM click_events
		WHERE link_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at, id`),
		linkID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("query click events: %w", err)
	}
	defer rows.Close()

	events := []domain.ClickEvent{}
	for rows.Next() {
		var (
			e  domain.ClickEvent
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.LinkID, &ms, &e.DeviceType, &e.TrafficSource, &e.CountryCode); err != nil {
			return nil, fmt.Errorf("scan click event: %w", err)
		}
		e.CreatedAt = fromMillis(ms)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) GetUptimeChecksInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.UptimeCheck, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, link_id, status, created_at
		FROM uptime_checks
		WHERE link_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at, id`),
		linkID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("query uptime checks: %w", err)
	}
	defer rows.Close()

	checks := []domain.UptimeCheck{}
	for rows.Next() {
		var (
			c      domain.UptimeCheck
			status string
			ms     int64
		)
		if err := rows.Scan(&c.ID, &c.LinkID, &status, &ms); err != nil {
			return nil, fmt.Errorf("scan uptime check: %w", err)
		}
		c.Status = domain.UptimeStatus(status)
		c.CreatedAt = fromMillis(ms)
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (s *Store) RecordUptimeCheck(ctx context.Context, linkID int64, status domain.UptimeStatus, at time.Time) (*domain.UptimeCheck, error) {
	if at.IsZero() {
		at = s.now()
	}
	check := &domain.UptimeCheck{LinkID: linkID, Status: status, CreatedAt: fromMillis(toMillis(at))}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.q("SELECT 1 FROM links WHERE id = ?"), linkID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrLinkNotFound
		}
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, s.q(`
			INSERT INTO uptime_checks (link_id, status, created_at)
			VALUES (?, ?, ?)
			RETURNING id`),
			linkID, string(status), toMillis(check.CreatedAt),
		).Scan(&check.ID)
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// q rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) q(query string) string {
	if !s.dialect.Postgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*domain.Link, error) {
	var (
		link        domain.Link
		kind        string
		createdAt   int64
		lastClicked sql.NullInt64
	)
	if err := row.Scan(&link.ID, &link.ShortCode, &link.TargetURL, &kind, &createdAt, &link.TotalClicks, &lastClicked); err != nil {
		return nil, err
	}
	link.RedirectKind = domain.RedirectKind(kind)
	link.CreatedAt = fromMillis(createdAt)
	if lastClicked.Valid {
		t := fromMillis(lastClicked.Int64)
		link.LastClicked = &t
	}
	return &link, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// libSQL reports constraint failures as plain text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
