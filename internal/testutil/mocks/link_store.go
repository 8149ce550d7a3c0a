// Package mocks provides testify mocks for the domain interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"linkboard/internal/domain"
)

var _ domain.LinkStore = (*MockLinkStore)(nil)

// MockLinkStore is a testify mock of domain.LinkStore.
type MockLinkStore struct {
	mock.Mock
}

// NewMockLinkStore creates a mock whose expectations are asserted on cleanup.
func NewMockLinkStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLinkStore {
	m := &MockLinkStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockLinkStore) CreateLink(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkStore) FindLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	link, _ := args.Get(0).(*domain.Link)
	return link, args.Error(1)
}

func (m *MockLinkStore) RecordClick(ctx context.Context, linkID int64, attrs domain.ClickAttributes) (*domain.ClickEvent, error) {
	args := m.Called(ctx, linkID, attrs)
	click, _ := args.Get(0).(*domain.ClickEvent)
	return click, args.Error(1)
}

func (m *MockLinkStore) ListLinks(ctx context.Context, query domain.ListQuery) (*domain.Page[domain.Link], error) {
	args := m.Called(ctx, query)
	page, _ := args.Get(0).(*domain.Page[domain.Link])
	return page, args.Error(1)
}

func (m *MockLinkStore) DeleteLink(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockLinkStore) GetEventsInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.ClickEvent, error) {
	args := m.Called(ctx, linkID, from, to)
	events, _ := args.Get(0).([]domain.ClickEvent)
	return events, args.Error(1)
}

func (m *MockLinkStore) GetUptimeChecksInRange(ctx context.Context, linkID int64, from, to time.Time) ([]domain.UptimeCheck, error) {
	args := m.Called(ctx, linkID, from, to)
	checks, _ := args.Get(0).([]domain.UptimeCheck)
	return checks, args.Error(1)
}

func (m *MockLinkStore) RecordUptimeCheck(ctx context.Context, linkID int64, status domain.UptimeStatus, at time.Time) (*domain.UptimeCheck, error) {
	args := m.Called(ctx, linkID, status, at)
	check, _ := args.Get(0).(*domain.UptimeCheck)
	return check, args.Error(1)
}

func (m *MockLinkStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
