package event

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkCreated(t *testing.T) {
	e := NewLinkCreated(7, "abc123", "https://example.com", "temporary")

	assert.Equal(t, "link.created", e.EventName())
	assert.Equal(t, "abc123", e.AggregateID())
	assert.Equal(t, int64(7), e.LinkID)
	assert.Equal(t, "https://example.com", e.TargetURL)
	assert.Equal(t, "temporary", e.RedirectKind)
	assert.False(t, e.OccurredAt().IsZero())
}

func TestLinkClicked(t *testing.T) {
	e := NewLinkClicked(7, "abc123", 42)
	e.DeviceType = "mobile"

	assert.Equal(t, "link.clicked", e.EventName())
	assert.Equal(t, "abc123", e.AggregateID())
	assert.Equal(t, int64(42), e.TotalClicks)
	assert.Equal(t, "mobile", e.DeviceType)
}

func TestLinkDeleted(t *testing.T) {
	e := NewLinkDeleted("abc123")

	assert.Equal(t, "link.deleted", e.EventName())
	assert.Equal(t, "abc123", e.AggregateID())
}

func TestMilestoneReached(t *testing.T) {
	e := NewMilestoneReached("abc123", 1000, 1000)

	assert.Equal(t, "link.milestone_reached", e.EventName())
	assert.Equal(t, "abc123", e.AggregateID())
	assert.Equal(t, int64(1000), e.Milestone)
	assert.Equal(t, int64(1000), e.TotalClicks)
}

func TestCheckMilestone(t *testing.T) {
	tests := []struct {
		name          string
		previousCount int64
		currentCount  int64
		wantMilestone int64
	}{
		{"reaches 100", 99, 100, 100},
		{"reaches 1000", 999, 1000, 1000},
		{"no milestone", 50, 51, 0},
		{"skips milestone", 90, 150, 100},
		{"already past", 100, 101, 0},
		{"first click", 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMilestone, CheckMilestone(tt.previousCount, tt.currentCount))
		})
	}
}

func TestBase_EventIDIsTimeOrderedUUID(t *testing.T) {
	first := NewLinkDeleted("a")
	second := NewLinkDeleted("b")

	id, err := uuid.Parse(first.EventID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, first.EventID(), second.EventID())
}

func TestLinkCreated_JSONIncludesBaseFields(t *testing.T) {
	e := NewLinkCreated(1, "abc123", "https://example.com", "permanent")

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, e.EventID(), decoded["event_id"])
	assert.Equal(t, "abc123", decoded["short_code"])
	assert.Equal(t, "https://example.com", decoded["target_url"])
}
