package eventbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"linkboard/internal/domain/event"
)

// Compile-time interface check
var _ EventHandler = (*MilestoneNotifier)(nil)

// EventIDHeader carries the event id so receivers can drop redeliveries.
const EventIDHeader = "X-Linkboard-Event-Id"

// MilestonePayload is the JSON body posted for every milestone.
type MilestonePayload struct {
	EventID     string    `json:"eventId"`
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	Milestone   int64     `json:"milestone"`
	TotalClicks int64     `json:"totalClicks"`
	ReachedAt   time.Time `json:"reachedAt"`
}

// MilestoneNotifier posts link.milestone_reached events to a webhook. A
// non-2xx answer is returned as an error so the router retries it.
type MilestoneNotifier struct {
	client     *http.Client
	webhookURL string
	baseURL    string
	logger     *zap.Logger
}

func NewMilestoneNotifier(client *http.Client, webhookURL, baseURL string, logger *zap.Logger) *MilestoneNotifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &MilestoneNotifier{client: client, webhookURL: webhookURL, baseURL: baseURL, logger: logger}
}

func (n *MilestoneNotifier) HandlerName() string {
	return "milestone_notifier"
}

func (n *MilestoneNotifier) EventName() string {
	return event.MilestoneReachedName
}

func (n *MilestoneNotifier) Handle(ctx context.Context, envelope *EventEnvelope) error {
	var evt event.MilestoneReached
	if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
		return err
	}

	body, err := json.Marshal(MilestonePayload{
		EventID:     envelope.EventID,
		ShortCode:   envelope.AggregateID,
		ShortURL:    n.baseURL + "/" + envelope.AggregateID,
		Milestone:   evt.Milestone,
		TotalClicks: evt.TotalClicks,
		ReachedAt:   envelope.OccurredAt,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventIDHeader, envelope.EventID)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post milestone webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("milestone webhook answered %d", resp.StatusCode)
	}

	n.logger.Info("milestone notified",
		zap.String("short_code", envelope.AggregateID),
		zap.Int64("milestone", evt.Milestone),
	)
	return nil
}
