package eventbus

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"linkboard/internal/domain/event"
)

// Compile-time interface check
var _ EventHandler = (*LoggingHandler)(nil)

// LoggingHandler writes one structured log line per event.
type LoggingHandler struct {
	logger    *zap.Logger
	eventName string
}

func NewLoggingHandler(logger *zap.Logger, eventName string) *LoggingHandler {
	return &LoggingHandler{logger: logger, eventName: eventName}
}

func (h *LoggingHandler) HandlerName() string {
	return "logging_handler_" + h.eventName
}

func (h *LoggingHandler) EventName() string {
	return h.eventName
}

func (h *LoggingHandler) Handle(_ context.Context, envelope *EventEnvelope) error {
	fields := []zap.Field{
		zap.String("event_name", envelope.EventName),
		zap.String("event_id", envelope.EventID),
		zap.String("short_code", envelope.AggregateID),
	}

	switch envelope.EventName {
	case event.LinkCreatedName:
		var evt event.LinkCreated
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			return err
		}
		fields = append(fields, zap.String("target_url", evt.TargetURL), zap.String("redirect_kind", evt.RedirectKind))
	case event.LinkClickedName:
		var evt event.LinkClicked
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			return err
		}
		fields = append(fields, zap.Int64("total_clicks", evt.TotalClicks), zap.String("device_type", evt.DeviceType))
	case event.MilestoneReachedName:
		var evt event.MilestoneReached
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			return err
		}
		fields = append(fields, zap.Int64("milestone", evt.Milestone))
	}

	h.logger.Info("domain event", fields...)
	return nil
}

// LinkEventNames lists every event published for links.
var LinkEventNames = []string{
	event.LinkCreatedName,
	event.LinkClickedName,
	event.LinkDeletedName,
	event.MilestoneReachedName,
}

// RegisterLoggingHandlers adds a LoggingHandler for every link event.
func RegisterLoggingHandlers(router *Router, logger *zap.Logger) {
	for _, name := range LinkEventNames {
		router.AddHandler(NewLoggingHandler(logger, name))
	}
}
