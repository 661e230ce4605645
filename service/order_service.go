package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradebook/domain/orderbook"
	"tradebook/infra/cache"
	"tradebook/infra/metrics"
)

// SubmitCommand is a fully formed order as received from a submitter.
type SubmitCommand struct {
	Side       orderbook.Side
	Instrument int
	Price      decimal.Decimal
	Quantity   int64
}

type SubmitResult struct {
	OrderID uuid.UUID
	Seq     uint64
	Trades  []orderbook.TradeEvent
}

// ErrLastTradeUnavailable is returned by LastTrade when no last-trade
// source is configured.
var ErrLastTradeUnavailable = errors.New("last-trade cache not configured")

// LastTradeSource answers last-trade queries; *cache.LastTrade is one.
type LastTradeSource interface {
	Get(ctx context.Context, instrument int) (cache.Quote, bool, error)
}

type OrderService struct {
	book       *orderbook.OrderBook
	metrics    *metrics.Metrics
	lastTrades LastTradeSource
	log        logrus.FieldLogger
}

// NewOrderService wires the book with its observability. m may be nil.
func NewOrderService(book *orderbook.OrderBook, m *metrics.Metrics, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		book:    book,
		metrics: m,
		log:     log.WithField("component", "order-service"),
	}
}

// WithLastTrades enables LastTrade queries.
func (s *OrderService) WithLastTrades(src LastTradeSource) *OrderService {
	s.lastTrades = src
	return s
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Submit places one order and returns the trades it caused. A submission
// that has started always runs to completion; ctx is only checked first.
func (s *OrderService) Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, err
	}

	o := orderbook.NewOrder(cmd.Side, cmd.Instrument, cmd.Price, cmd.Quantity)

	start := time.Now()
	trades, err := s.book.Submit(o)
	elapsed := time.Since(start)

	var filled int64
	for _, t := range trades {
		filled += t.Quantity
	}
	if s.metrics != nil {
		s.metrics.ObserveSubmit(elapsed, len(trades), filled, err)
	}

	if err != nil {
		if !errors.Is(err, orderbook.ErrInvalidOrder) {
			s.log.WithError(err).Error("submit failed")
		} else {
			s.log.WithError(err).WithField("instrument", cmd.Instrument).Debug("order rejected")
		}
		return SubmitResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"order":      o.ID(),
		"seq":        o.Seq(),
		"side":       cmd.Side,
		"instrument": cmd.Instrument,
		"price":      cmd.Price,
		"qty":        cmd.Quantity,
		"trades":     len(trades),
		"filled":     filled,
	}).Debug("order accepted")

	return SubmitResult{OrderID: o.ID(), Seq: o.Seq(), Trades: trades}, nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Depth returns the resting orders of one instrument, best first.
func (s *OrderService) Depth(ctx context.Context, instrument int) (orderbook.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return orderbook.Snapshot{}, err
	}
	return s.book.Depth(instrument)
}

// LastTrade returns the latest execution of one instrument; false when
// it has not traded.
func (s *OrderService) LastTrade(ctx context.Context, instrument int) (cache.Quote, bool, error) {
	if err := ctx.Err(); err != nil {
		return cache.Quote{}, false, err
	}
	if instrument < 0 || instrument >= s.Instruments() {
		return cache.Quote{}, false, errors.Wrapf(orderbook.ErrInvalidOrder,
			"instrument %d outside [0, %d)", instrument, s.Instruments())
	}
	if s.lastTrades == nil {
		return cache.Quote{}, false, ErrLastTradeUnavailable
	}
	return s.lastTrades.Get(ctx, instrument)
}

func (s *OrderService) Instruments() int {
	return s.book.Instruments()
}
