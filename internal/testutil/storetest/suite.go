// Package storetest holds a behavioural test suite shared by every
// domain.LinkStore implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"linkboard/internal/analytics"
	"linkboard/internal/domain"
)

// Clock is a settable time source for stores under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// LinkStoreSuite exercises the domain.LinkStore contract. Embedders set
// NewStore, which must return an empty store reading time from the clock.
type LinkStoreSuite struct {
	suite.Suite
	NewStore func(clock func() time.Time) domain.LinkStore

	ctx   context.Context
	clock *Clock
	store domain.LinkStore
}

var epoch = time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)

func (s *LinkStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = NewClock(epoch)
	s.store = s.NewStore(s.clock.Now)
}

func (s *LinkStoreSuite) createLink(code, target string) *domain.Link {
	link := &domain.Link{ShortCode: code, TargetURL: target, RedirectKind: domain.RedirectTemporary}
	s.Require().NoError(s.store.CreateLink(s.ctx, link))
	return link
}

func (s *LinkStoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *LinkStoreSuite) TestCreateLink_AssignsIDAndCreatedAt() {
	// Act
	link := s.createLink("abc123", "https://example.com")

	// Assert
	s.NotZero(link.ID)
	s.Equal(epoch, link.CreatedAt)
	s.Zero(link.TotalClicks)
	s.Nil(link.LastClicked)

	found, err := s.store.FindLinkByCode(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(link.ID, found.ID)
	s.Equal("https://example.com", found.TargetURL)
	s.Equal(domain.RedirectTemporary, found.RedirectKind)
	s.True(epoch.Equal(found.CreatedAt))
}

func (s *LinkStoreSuite) TestCreateLink_DefaultsToTemporary() {
	link := &domain.Link{ShortCode: "nokind", TargetURL: "https://example.com"}
	s.Require().NoError(s.store.CreateLink(s.ctx, link))

	found, err := s.store.FindLinkByCode(s.ctx, "nokind")
	s.Require().NoError(err)
	s.Equal(domain.RedirectTemporary, found.RedirectKind)
}

func (s *LinkStoreSuite) TestCreateLink_DuplicateCode_ReturnsConflict() {
	s.createLink("dup", "https://first.example.com")

	err := s.store.CreateLink(s.ctx, &domain.Link{ShortCode: "dup", TargetURL: "https://second.example.com"})

	s.ErrorIs(err, domain.ErrShortCodeExists)
}

func (s *LinkStoreSuite) TestCreateLink_CodesAreCaseSensitive() {
	s.createLink("abc", "https://lower.example.com")
	s.createLink("ABC", "https://upper.example.com")

	lower, err := s.store.FindLinkByCode(s.ctx, "abc")
	s.Require().NoError(err)
	upper, err := s.store.FindLinkByCode(s.ctx, "ABC")
	s.Require().NoError(err)
	s.NotEqual(lower.ID, upper.ID)
}

func (s *LinkStoreSuite) TestFindLinkByCode_Unknown_ReturnsNotFound() {
	link, err := s.store.FindLinkByCode(s.ctx, "missing")

	s.ErrorIs(err, domain.ErrLinkNotFound)
	s.Nil(link)
}

func (s *LinkStoreSuite) TestRecordClick_UpdatesTotals() {
	// Arrange
	link := s.createLink("abc123", "https://example.com")
	s.clock.Advance(time.Hour)

	// Act
	click, err := s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{DeviceType: "Mobile", TrafficSource: "social", CountryCode: "DE"})
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)
	_, err = s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{})
	s.Require().NoError(err)

	// Assert
	s.NotZero(click.ID)
	s.Equal(link.ID, click.LinkID)
	s.Equal("Mobile", click.DeviceType)
	s.Equal(int64(1), click.LinkTotal)

	found, err := s.store.FindLinkByCode(s.ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(int64(2), found.TotalClicks)
	s.Require().NotNil(found.LastClicked)
	s.True(epoch.Add(time.Hour + time.Minute).Equal(*found.LastClicked))
}

func (s *LinkStoreSuite) TestRecordClick_TotalMatchesEventCount() {
	link := s.createLink("count", "https://example.com")
	for range 5 {
		_, err := s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{})
		s.Require().NoError(err)
	}

	events, err := s.store.GetEventsInRange(s.ctx, link.ID, epoch.Add(-time.Hour), epoch.Add(time.Hour))
	s.Require().NoError(err)
	found, err := s.store.FindLinkByCode(s.ctx, "count")
	s.Require().NoError(err)
	s.Equal(int64(len(events)), found.TotalClicks)
}

func (s *LinkStoreSuite) TestRecordClick_ConcurrentClicksAreNotLost() {
	// Arrange
	const clicks = 50
	link := s.createLink("hot", "https://example.com")

	// Act
	var wg sync.WaitGroup
	errs := make(chan error, clicks)
	totals := make(chan int64, clicks)
	for range clicks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			click, err := s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{})
			if err != nil {
				errs <- err
				return
			}
			totals <- click.LinkTotal
		}()
	}
	wg.Wait()
	close(errs)
	close(totals)

	// Assert
	for err := range errs {
		s.NoError(err)
	}
	seen := make(map[int64]bool, clicks)
	for total := range totals {
		s.False(seen[total], "total %d reported twice", total)
		seen[total] = true
	}
	s.Len(seen, clicks)

	found, err := s.store.FindLinkByCode(s.ctx, "hot")
	s.Require().NoError(err)
	s.Equal(int64(clicks), found.TotalClicks)
	events, err := s.store.GetEventsInRange(s.ctx, link.ID, epoch.Add(-time.Hour), epoch.Add(time.Hour))
	s.Require().NoError(err)
	s.Len(events, clicks)
}

func (s *LinkStoreSuite) TestRecordClick_UnknownLink_ReturnsNotFound() {
	_, err := s.store.RecordClick(s.ctx, 424242, domain.ClickAttributes{})

	s.ErrorIs(err, domain.ErrLinkNotFound)
}

func (s *LinkStoreSuite) TestGetEventsInRange_IsHalfOpen() {
	// Arrange
	link := s.createLink("range", "https://example.com")
	from := epoch
	to := epoch.Add(24 * time.Hour)

	for _, at := range []time.Time{
		from.Add(-time.Millisecond),
		from,
		to.Add(-time.Millisecond),
		to,
	} {
		s.clock.Set(at)
		_, err := s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{})
		s.Require().NoError(err)
	}

	// Act
	events, err := s.store.GetEventsInRange(s.ctx, link.ID, from, to)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.True(from.Equal(events[0].CreatedAt))
	s.True(to.Add(-time.Millisecond).Equal(events[1].CreatedAt))
}

func (s *LinkStoreSuite) TestGetEventsInRange_OnlyOwnLink() {
	a := s.createLink("aaa", "https://a.example.com")
	b := s.createLink("bbb", "https://b.example.com")
	_, err := s.store.RecordClick(s.ctx, a.ID, domain.ClickAttributes{})
	s.Require().NoError(err)

	events, err := s.store.GetEventsInRange(s.ctx, b.ID, epoch.Add(-time.Hour), epoch.Add(time.Hour))

	s.Require().NoError(err)
	s.NotNil(events)
	s.Empty(events)
}

func (s *LinkStoreSuite) TestUptimeChecks_RecordAndRange() {
	// Arrange
	link := s.createLink("up", "https://example.com")
	at := epoch.Add(2 * time.Hour)

	// Act
	check, err := s.store.RecordUptimeCheck(s.ctx, link.ID, domain.StatusDown, at)
	s.Require().NoError(err)
	_, err = s.store.RecordUptimeCheck(s.ctx, link.ID, domain.StatusUp, time.Time{})
	s.Require().NoError(err)

	// Assert
	s.NotZero(check.ID)
	checks, err := s.store.GetUptimeChecksInRange(s.ctx, link.ID, epoch, epoch.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(checks, 2)
	s.Equal(domain.StatusUp, checks[0].Status)
	s.True(epoch.Equal(checks[0].CreatedAt))
	s.Equal(domain.StatusDown, checks[1].Status)
}

func (s *LinkStoreSuite) TestRecordUptimeCheck_UnknownLink_ReturnsNotFound() {
	_, err := s.store.RecordUptimeCheck(s.ctx, 99999, domain.StatusUp, epoch)

	s.ErrorIs(err, domain.ErrLinkNotFound)
}

func (s *LinkStoreSuite) TestListLinks_PaginatesNewestFirst() {
	// Arrange
	for i := 1; i <= 5; i++ {
		s.createLink(fmt.Sprintf("code%d", i), fmt.Sprintf("https://site%d.example.com", i))
		s.clock.Advance(time.Minute)
	}

	// Act
	page, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 2})

	// Assert
	s.Require().NoError(err)
	s.Require().Len(page.Data, 2)
	s.Equal("code5", page.Data[0].ShortCode)
	s.Equal("code4", page.Data[1].ShortCode)
	s.Equal(domain.Pagination{Total: 5, Page: 1, Limit: 2, TotalPages: 3, HasNext: true, HasPrev: false}, page.Pagination)

	last, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 3, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(last.Data, 1)
	s.Equal("code1", last.Data[0].ShortCode)
	s.False(last.Pagination.HasNext)
	s.True(last.Pagination.HasPrev)
}

func (s *LinkStoreSuite) TestListLinks_TiesBrokenByID() {
	first := s.createLink("first", "https://example.com/1")
	second := s.createLink("second", "https://example.com/2")

	page, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 10})

	s.Require().NoError(err)
	s.Require().Len(page.Data, 2)
	s.Equal(second.ID, page.Data[0].ID)
	s.Equal(first.ID, page.Data[1].ID)
}

func (s *LinkStoreSuite) TestListLinks_SearchIsCaseInsensitiveSubstring() {
	s.createLink("Docs", "https://example.com/a")
	s.createLink("blog", "https://EXAMPLE.org/docs/intro")
	s.createLink("misc", "https://other.net")

	page, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 10, Search: "dOcS"})

	s.Require().NoError(err)
	s.Equal(int64(2), page.Pagination.Total)
	s.Len(page.Data, 2)
}

func (s *LinkStoreSuite) TestListLinks_SearchFoldsNonASCIICase() {
	s.createLink("cafe", "https://example.com/CAFÉ")
	s.createLink("plain", "https://example.com/cafe")

	page, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 10, Search: "café"})

	s.Require().NoError(err)
	s.Require().Equal(int64(1), page.Pagination.Total)
	s.Equal("cafe", page.Data[0].ShortCode)

	upper, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 10, Search: "É"})
	s.Require().NoError(err)
	s.Equal(int64(1), upper.Pagination.Total)
}

func (s *LinkStoreSuite) TestListLinks_SearchTreatsWildcardsLiterally() {
	s.createLink("pct", "https://example.com/100%25off")
	s.createLink("plain", "https://example.com/sale")
	s.createLink("under_score", "https://example.com/u")

	pct, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 10, Search: "%"})
	s.Require().NoError(err)
	s.Equal(int64(1), pct.Pagination.Total)

	under, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 10, Search: "_"})
	s.Require().NoError(err)
	s.Equal(int64(1), under.Pagination.Total)
	s.Equal("under_score", under.Data[0].ShortCode)
}

func (s *LinkStoreSuite) TestListLinks_PageBeyondTotal_ReturnsEmptyData() {
	s.createLink("only", "https://example.com")

	page, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 5, Limit: 10})

	s.Require().NoError(err)
	s.NotNil(page.Data)
	s.Empty(page.Data)
	s.Equal(int64(1), page.Pagination.Total)
	s.Equal(1, page.Pagination.TotalPages)
	s.False(page.Pagination.HasNext)
}

func (s *LinkStoreSuite) TestListLinks_InvalidQuery_ReturnsValidationError() {
	_, err := s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 0})
	s.ErrorIs(err, domain.ErrValidation)

	_, err = s.store.ListLinks(s.ctx, domain.ListQuery{Page: 0, Limit: 10})
	s.ErrorIs(err, domain.ErrValidation)

	_, err = s.store.ListLinks(s.ctx, domain.ListQuery{Page: 1, Limit: 101})
	s.ErrorIs(err, domain.ErrValidation)
}

func (s *LinkStoreSuite) TestDeleteLink_CascadesEvents() {
	// Arrange
	link := s.createLink("abc123", "https://example.com")
	_, err := s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{})
	s.Require().NoError(err)
	_, err = s.store.RecordUptimeCheck(s.ctx, link.ID, domain.StatusUp, epoch)
	s.Require().NoError(err)

	// Act
	err = s.store.DeleteLink(s.ctx, "abc123")

	// Assert
	s.Require().NoError(err)
	_, err = s.store.FindLinkByCode(s.ctx, "abc123")
	s.ErrorIs(err, domain.ErrLinkNotFound)

	from, to := epoch.Add(-24*time.Hour), epoch.Add(24*time.Hour)
	events, err := s.store.GetEventsInRange(s.ctx, link.ID, from, to)
	s.Require().NoError(err)
	s.Empty(events)
	checks, err := s.store.GetUptimeChecksInRange(s.ctx, link.ID, from, to)
	s.Require().NoError(err)
	s.Empty(checks)

	_, err = s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{})
	s.ErrorIs(err, domain.ErrLinkNotFound)
}

func (s *LinkStoreSuite) TestDeleteLink_Unknown_ReturnsNotFound() {
	s.ErrorIs(s.store.DeleteLink(s.ctx, "missing"), domain.ErrLinkNotFound)
}

func (s *LinkStoreSuite) TestDeleteLink_FreesShortCode() {
	s.createLink("reuse", "https://old.example.com")
	s.Require().NoError(s.store.DeleteLink(s.ctx, "reuse"))

	link := s.createLink("reuse", "https://new.example.com")

	s.Zero(link.TotalClicks)
}

func (s *LinkStoreSuite) TestDailyRollupFromStoredClicks() {
	// Arrange
	d := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	link := s.createLink("abc123", "https://example.com")
	for _, at := range []time.Time{
		d.Add(10 * time.Hour),
		d.Add(25 * time.Hour),
		d.Add(40 * time.Hour),
	} {
		s.clock.Set(at)
		_, err := s.store.RecordClick(s.ctx, link.ID, domain.ClickAttributes{})
		s.Require().NoError(err)
	}
	now := d.Add(47 * time.Hour)

	// Act
	from, to := analytics.Window(3, now)
	events, err := s.store.GetEventsInRange(s.ctx, link.ID, from, to)
	s.Require().NoError(err)
	buckets := analytics.BucketClicks(events, 3, now)

	// Assert
	s.Equal([]analytics.DailyBucket{
		{Date: "2024-05-13", Count: 0},
		{Date: "2024-05-14", Count: 1},
		{Date: "2024-05-15", Count: 2},
	}, buckets)
}
