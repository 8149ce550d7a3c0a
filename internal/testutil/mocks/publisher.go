package mocks

import (
	"context"
	"sync"

	"linkboard/internal/domain/event"
)

// RecordingPublisher collects published events. Err, when set, is returned
// from every Publish call.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.Err
}

func (p *RecordingPublisher) Events() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Event(nil), p.events...)
}

func (p *RecordingPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}
