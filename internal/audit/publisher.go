package audit

import (
	"context"
	"sync"
	"time"
)

// Publisher is the sink for mutation events. Services emit only after a
// successful commit; a failed emit must not fail the business operation, so
// implementations log and drop rather than propagate.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// InMemoryPublisher collects events for tests and for the in-process feed.
type InMemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Reset drops everything emitted so far.
func (p *InMemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// Events returns a copy of everything emitted so far, newest last.
func (p *InMemoryPublisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Event{}, p.events...)
}

// ByCountry filters the feed the way per-country feed pages do: events with
// no country scope are global and always included.
func (p *InMemoryPublisher) ByCountry(countryID string) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, e := range p.events {
		if e.CountryID == "" || e.CountryID == countryID {
			out = append(out, e)
		}
	}
	return out
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) {}

type contextKeyClient struct{}

// WithClient stores the condensed client string for the request; the HTTP
// layer sets it from the User-Agent header.
func WithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, contextKeyClient{}, client)
}

// ClientPublisher stamps each event with the client string found on the
// context before delegating.
type ClientPublisher struct {
	next Publisher
}

func WithClientFromContext(next Publisher) *ClientPublisher {
	return &ClientPublisher{next: next}
}

func (p *ClientPublisher) Emit(ctx context.Context, event Event) {
	if event.Client == "" {
		if client, ok := ctx.Value(contextKeyClient{}).(string); ok {
			event.Client = client
		}
	}
	p.next.Emit(ctx, event)
}
