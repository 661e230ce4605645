// Package tradefeed moves trade batches off the matching path. Batches
// are sharded by instrument; each shard is an unbounded FIFO drained by
// one goroutine, so a slow consumer delays only its own shard and the
// trades of one instrument are handled in execution order.
package tradefeed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"tradebook/domain/orderbook"
)

// Handler consumes one submission's trades. Errors are logged, not retried.
type Handler interface {
	HandleTrades(ctx context.Context, events []orderbook.TradeEvent) error
}

type HandlerFunc func(ctx context.Context, events []orderbook.TradeEvent) error

func (f HandlerFunc) HandleTrades(ctx context.Context, events []orderbook.TradeEvent) error {
	return f(ctx, events)
}

type shard struct {
	mu     sync.Mutex
	queue  [][]orderbook.TradeEvent
	wake   chan struct{}
	closed bool
}

type Dispatcher struct {
	shards   []*shard
	handlers []Handler
	log      logrus.FieldLogger
	wg       sync.WaitGroup
}

func New(shards int, log logrus.FieldLogger, handlers ...Handler) *Dispatcher {
	if shards <= 0 {
		shards = 1
	}
	d := &Dispatcher{
		shards:   make([]*shard, shards),
		handlers: handlers,
		log:      log.WithField("component", "tradefeed"),
	}
	for i := range d.shards {
		d.shards[i] = &shard{wake: make(chan struct{}, 1)}
	}
	return d
}

// Start launches one worker per shard.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, s := range d.shards {
		d.wg.Add(1)
		go d.work(ctx, i, s)
	}
}

// Publish implements orderbook.TradeSink. It never waits on handlers.
func (d *Dispatcher) Publish(events []orderbook.TradeEvent) {
	if len(events) == 0 {
		return
	}
	s := d.shards[events[0].Instrument%len(d.shards)]

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		d.log.WithField("instrument", events[0].Instrument).Warn("dropping trades published after close")
		return
	}
	s.queue = append(s.queue, events)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting batches and waits until every queued batch has
// been handled.
func (d *Dispatcher) Close() {
	for _, s := range d.shards {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int, s *shard) {
	defer d.wg.Done()
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		for _, events := range batch {
			d.handle(ctx, events)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			d.log.WithField("shard", id).Debug("shard drained")
			return
		}
		<-s.wake
	}
}

func (d *Dispatcher) handle(ctx context.Context, events []orderbook.TradeEvent) {
	for _, h := range d.handlers {
		if err := h.HandleTrades(ctx, events); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"instrument": events[0].Instrument,
				"seq":        events[0].Seq,
			}).Error("trade handler failed")
		}
	}
}
