package eventbus

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"linkboard/internal/domain/event"
)

func TestLoggingHandler_LogsEventFields(t *testing.T) {
	// Setup
	core, logs := observer.New(zap.InfoLevel)
	handler := NewLoggingHandler(zap.New(core), event.LinkCreatedName)
	msg, err := EventToMessage(event.NewLinkCreated(3, "abc123", "https://example.com", "permanent"))
	require.NoError(t, err)
	envelope, err := MessageToEnvelope(msg)
	require.NoError(t, err)

	// Act
	err = handler.Handle(context.Background(), envelope)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "domain event", entry.Message)
	assert.Equal(t, "abc123", entry.ContextMap()["short_code"])
	assert.Equal(t, "https://example.com", entry.ContextMap()["target_url"])
}

func TestLoggingHandler_RejectsCorruptPayload(t *testing.T) {
	handler := NewLoggingHandler(zap.NewNop(), event.LinkClickedName)

	err := handler.Handle(context.Background(), &EventEnvelope{
		EventName: event.LinkClickedName,
		Payload:   []byte(`{"total_clicks":"many"}`),
	})

	assert.Error(t, err)
}

func TestZapLoggerAdapter_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	adapter := NewZapLoggerAdapter(zap.New(core)).With(watermill.LogFields{"topic": LinkEventsTopic})

	adapter.Info("subscribed", watermill.LogFields{"handler": "h1"})
	adapter.Trace("tick", nil)

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, LinkEventsTopic, first.ContextMap()["topic"])
	assert.Equal(t, "h1", first.ContextMap()["handler"])
	assert.Equal(t, "eventbus", first.LoggerName)
}
