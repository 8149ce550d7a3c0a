package eventbus

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

const (
	handlerMaxRetries    = 3
	handlerRetryInterval = 100 * time.Millisecond
)

// EventHandler handles events from the event bus.
type EventHandler interface {
	// HandlerName must be unique within a Router.
	HandlerName() string
	// EventName returns the event name this handler handles.
	EventName() string
	Handle(ctx context.Context, envelope *EventEnvelope) error
}

// Router fans link events out to handlers. A failing handler is retried with
// backoff and then skipped, so one bad event cannot stall a subscription.
type Router struct {
	router   *message.Router
	eventBus *EventBus
	logger   watermill.LoggerAdapter
}

func NewRouter(eventBus *EventBus, logger watermill.LoggerAdapter) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	r := &Router{
		router:   router,
		eventBus: eventBus,
		logger:   logger,
	}
	router.AddMiddleware(
		r.skipExhausted,
		middleware.Retry{
			MaxRetries:      handlerMaxRetries,
			InitialInterval: handlerRetryInterval,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
		middleware.Recoverer,
	)
	return r, nil
}

// skipExhausted acks a message whose handler still fails after retries.
func (r *Router) skipExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err != nil {
			r.logger.Error("dropping event after retries", err, watermill.LogFields{
				"uuid":       msg.UUID,
				"event_name": msg.Metadata.Get("event_name"),
			})
			return nil, nil
		}
		return produced, nil
	}
}

// AddHandler registers an event handler. Handlers must be added before Run.
func (r *Router) AddHandler(handler EventHandler) {
	r.router.AddNoPublisherHandler(
		handler.HandlerName(),
		LinkEventsTopic,
		r.eventBus.Subscriber(),
		r.handlerFunc(handler),
	)
}

func (r *Router) handlerFunc(handler EventHandler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		// Filter on metadata first so unrelated events are not decoded.
		if name := msg.Metadata.Get("event_name"); name != "" && name != handler.EventName() {
			return nil
		}

		envelope, err := MessageToEnvelope(msg)
		if err != nil {
			r.logger.Error("failed to parse message", err, watermill.LogFields{"uuid": msg.UUID})
			return nil // poison message, don't retry
		}
		if envelope.EventName != handler.EventName() {
			return nil
		}

		if err := handler.Handle(msg.Context(), envelope); err != nil {
			r.logger.Info("event handler failed", watermill.LogFields{
				"handler":    handler.HandlerName(),
				"event_name": envelope.EventName,
				"event_id":   envelope.EventID,
				"error":      err.Error(),
			})
			return err
		}
		return nil
	}
}

// Run blocks until ctx is cancelled or the router is closed.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once the router is processing messages.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	return r.router.Close()
}
