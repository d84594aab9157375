// Package publisher delivers audit events to a Store, either inline or
// through a buffered background worker.
package publisher

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	audit "vestry/pkg/platform/audit"
	"vestry/pkg/requestcontext"
)

// ErrBufferFull is returned in async mode when the inbox cannot accept
// another event without blocking the caller.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher enriches events with request metadata and hands them to a
// Store. By default delivery is synchronous; WithAsyncBuffer moves it onto
// a background worker so slow sinks never stall request handling.
type Publisher struct {
	store   audit.Store
	metrics *Metrics

	inbox chan audit.Event
	wg    sync.WaitGroup
	once  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given inbox capacity. Emit never blocks; events offered while the inbox
// is full are dropped with ErrBufferFull.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithMetrics enables delivery instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records one event. Enrichment (ID, timestamp, request metadata)
// happens on the caller's goroutine so the request context is still live.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = enrich(ctx, event)
	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			if p.metrics != nil {
				p.metrics.PersistFailures.Inc()
			}
			return err
		}
		if p.metrics != nil {
			p.metrics.Published.Inc()
		}
		return nil
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		return ErrBufferFull
	}
}

// Close stops the background worker after draining buffered events. Safe
// to call in sync mode and safe to call more than once.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.once.Do(func() { close(p.inbox) })
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.inbox {
		// The originating request context is gone by the time the worker
		// runs, so the store gets a fresh one.
		if err := p.store.Append(context.Background(), event); err != nil {
			if p.metrics != nil {
				p.metrics.PersistFailures.Inc()
			}
			continue
		}
		if p.metrics != nil {
			p.metrics.Published.Inc()
		}
	}
}

func enrich(ctx context.Context, event audit.Event) audit.Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}
	return event
}
