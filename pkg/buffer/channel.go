package buffer

import (
	"context"
	"sync"

	"github.com/c360/bee/errors"
)

// Channel is a bounded multi-producer queue between two pipeline stages.
//
// Producers never close the channel directly. Each producer obtains its own
// Sender and closes it when done; the underlying channel closes when the
// last Sender closes. Consumers drain the remaining items and then observe
// end of stream (ErrClosed from Recv, or a closed C()). Items sent through
// one Sender are received in the order they were sent.
type Channel[T any] struct {
	name    string
	ch      chan T
	opts    *channelOptions[T]
	stats   *Statistics
	metrics *channelMetrics

	mu        sync.Mutex
	producers int
	closed    bool
}

// New creates a channel with a fixed capacity.
func New[T any](capacity int, options ...Option[T]) (*Channel[T], error) {
	if capacity <= 0 {
		return nil, errors.Newf(errors.InvalidParam, "channel capacity must be positive, got %d", capacity)
	}
	opts := applyOptions(options...)
	return &Channel[T]{
		name:    opts.metricsName,
		ch:      make(chan T, capacity),
		opts:    opts,
		stats:   NewStatistics(),
		metrics: newChannelMetrics(opts.metricsReg, opts.metricsName),
	}, nil
}

// Sender registers a new producer. Obtain every Sender before the first one
// closes; once the producer count has dropped to zero the channel is closed
// for good.
func (c *Channel[T]) Sender() (*Sender[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.producers++
	return &Sender[T]{c: c}, nil
}

// Senders registers n producers at once.
func (c *Channel[T]) Senders(n int) ([]*Sender[T], error) {
	out := make([]*Sender[T], 0, n)
	for i := 0; i < n; i++ {
		s, err := c.Sender()
		if err != nil {
			for _, opened := range out {
				_ = opened.Close()
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Channel[T]) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producers--
	if c.producers == 0 && !c.closed {
		c.closed = true
		close(c.ch)
	}
}

func (c *Channel[T]) send(ctx context.Context, item T) error {
	select {
	case c.ch <- item:
		c.accepted()
		return nil
	default:
	}
	c.stats.overflow()

	switch c.opts.overflowPolicy {
	case DropNewest:
		c.dropped(item)
		return nil
	case DropOldest:
		for {
			select {
			case c.ch <- item:
				c.accepted()
				return nil
			default:
			}
			select {
			case old := <-c.ch:
				c.dropped(old)
			default:
			}
		}
	default:
		if ctx.Err() != nil {
			return ErrSendCancelled
		}
		select {
		case c.ch <- item:
			c.accepted()
			return nil
		case <-ctx.Done():
			return ErrSendCancelled
		}
	}
}

func (c *Channel[T]) accepted() {
	c.stats.send()
	depth := len(c.ch)
	c.stats.observeDepth(depth)
	c.metrics.recordDepth(depth)
}

func (c *Channel[T]) dropped(item T) {
	c.stats.drop()
	c.metrics.recordDrop()
	if c.opts.dropCallback != nil {
		c.opts.dropCallback(item)
	}
}

// Recv waits for the next item. It returns ErrClosed once every Sender has
// closed and the buffer is drained, and ErrRecvCancelled if ctx ends first.
func (c *Channel[T]) Recv(ctx context.Context) (T, error) {
	select {
	case item, ok := <-c.ch:
		if !ok {
			var zero T
			return zero, ErrClosed
		}
		c.stats.receive()
		c.metrics.recordDepth(len(c.ch))
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ErrRecvCancelled
	}
}

// C exposes the receive side for range loops and selects.
func (c *Channel[T]) C() <-chan T {
	return c.ch
}

// Len returns the number of buffered items.
func (c *Channel[T]) Len() int { return len(c.ch) }

// Cap returns the channel capacity.
func (c *Channel[T]) Cap() int { return cap(c.ch) }

// Name returns the metrics label, empty when metrics are off.
func (c *Channel[T]) Name() string { return c.name }

// Policy returns the overflow policy.
func (c *Channel[T]) Policy() OverflowPolicy { return c.opts.overflowPolicy }

// Stats returns the live statistics.
func (c *Channel[T]) Stats() *Statistics { return c.stats }

// Producers returns the number of open Senders.
func (c *Channel[T]) Producers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.producers
}

// Closed reports whether the last Sender has closed.
func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sender is one producer's handle on a Channel. A Sender may be shared by
// goroutines, but ordering is only guaranteed for sends from one goroutine.
type Sender[T any] struct {
	c      *Channel[T]
	mu     sync.RWMutex
	closed bool
}

// Send enqueues item according to the channel's overflow policy. With
// Block it waits for space or for ctx to end.
func (s *Sender[T]) Send(ctx context.Context, item T) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.c.send(ctx, item)
}

// Close releases this producer. It waits for in-flight sends on this
// Sender and is idempotent.
func (s *Sender[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.c.release()
	return nil
}
