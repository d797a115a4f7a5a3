package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 64

// Publisher is a [Sender] that queues alerts for slow consumers such as a
// [Mailer], so that logging never waits on delivery.
//
// Each call to [Publisher.Send] delivers the alert to every active
// [Subscription] via a buffered channel with ring-buffer semantics: when a
// subscriber's channel is full the oldest alert is dropped so Send never
// blocks. Safe for concurrent use.
//
// Create instances with [NewPublisher].
type Publisher struct {
	subscribers []*Subscription
	bufSize     int
	dropped     atomic.Uint64
	mu          sync.Mutex
	closed      bool
}

// NewPublisher creates a [Publisher] with the given options.
// The default buffer size is 64.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		bufSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PublisherOption configures a [Publisher].
type PublisherOption func(*Publisher)

// WithBufferSize sets the channel buffer size for new subscriptions.
// Values less than 1 are clamped to 1.
func WithBufferSize(n int) PublisherOption {
	return func(p *Publisher) {
		if n < 1 {
			n = 1
		}

		p.bufSize = n
	}
}

// Send queues a for all active subscribers. When a subscriber's queue is
// full its oldest alert is dropped to make room and counted in
// [Publisher.Dropped]. Closed subscriptions are compacted out of the
// subscriber list. Send always returns nil.
func (p *Publisher) Send(_ context.Context, a Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	alive := p.subscribers[:0]
	for _, sub := range p.subscribers {
		if sub.closed.Load() {
			close(sub.ch)
			continue
		}

		select {
		case sub.ch <- a:
		default:
			<-sub.ch

			sub.ch <- a

			p.dropped.Add(1)
		}

		alive = append(alive, sub)
	}

	for i := len(alive); i < len(p.subscribers); i++ {
		p.subscribers[i] = nil
	}

	p.subscribers = alive

	return nil
}

// Subscribe creates and registers a new [Subscription]. If the Publisher is
// already closed the returned subscription's channel is immediately closed.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription{
		ch: make(chan Alert, p.bufSize),
	}

	if p.closed {
		close(sub.ch)
		return sub
	}

	p.subscribers = append(p.subscribers, sub)

	return sub
}

// Dropped returns how many queued alerts were discarded because a
// subscriber fell behind.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close marks the Publisher as closed, closes all subscription channels,
// and releases the subscriber list. Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	for _, sub := range p.subscribers {
		close(sub.ch)
	}

	p.subscribers = nil

	return nil
}

// Subscription receives alerts from a [Publisher].
type Subscription struct {
	ch     chan Alert
	closed atomic.Bool
}

// C returns the read-only channel that delivers alerts.
func (s *Subscription) C() <-chan Alert {
	return s.ch
}

// Close marks the subscription as closed. The Publisher will close the
// underlying channel on its next Send or Close call. Idempotent.
func (s *Subscription) Close() {
	s.closed.Store(true)
}
