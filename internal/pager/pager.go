// Package pager implements offset pagination and substring search over links.
package pager

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"linkboard/internal/domain"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Validate rejects page and limit values outside the accepted range.
func Validate(q domain.ListQuery) error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", domain.ErrValidation, q.Page)
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", domain.ErrValidation, MaxLimit, q.Limit)
	}
	return nil
}

// NewPagination computes the pagination block for a filtered total.
// A page past the last one is allowed and reports hasNext=false.
func NewPagination(total int64, page, limit int) domain.Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return domain.Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Offset returns the number of rows to skip for the query's page.
func Offset(q domain.ListQuery) int {
	return (q.Page - 1) * q.Limit
}

// Fold is the case folding search uses. SQL stores keep a folded copy of
// the target URL instead of relying on the engine's LOWER, which is
// ASCII-only in SQLite.
func Fold(s string) string {
	return strings.ToLower(s)
}

// Matches reports whether the link contains search in its short code or
// target URL, ignoring case. An empty search matches every link.
func Matches(link domain.Link, search string) bool {
	if search == "" {
		return true
	}
	needle := Fold(search)
	return strings.Contains(Fold(link.ShortCode), needle) ||
		strings.Contains(Fold(link.TargetURL), needle)
}

// Paginate filters, sorts and slices links. Links are ordered newest first,
// with ties on createdAt broken by descending id.
func Paginate(links []domain.Link, q domain.ListQuery) (*domain.Page[domain.Link], error) {
	if err := Validate(q); err != nil {
		return nil, err
	}

	matched := lo.Filter(links, func(l domain.Link, _ int) bool {
		return Matches(l, q.Search)
	})
	slices.SortStableFunc(matched, func(a, b domain.Link) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := int64(len(matched))
	start := min(Offset(q), len(matched))
	end := min(start+q.Limit, len(matched))

	return &domain.Page[domain.Link]{
		Data:       slices.Clone(matched[start:end]),
		Pagination: NewPagination(total, q.Page, q.Limit),
	}, nil
}
