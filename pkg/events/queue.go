package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
)

// Queue hands trades to a Publisher from one goroutine, so publish order
// matches record order and a slow broker never blocks order placement.
// Trades arriving while the buffer is full are dropped and logged.
type Queue struct {
	pub     Publisher
	ch      chan trade.Trade
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func NewQueue(pub Publisher, size int, timeout time.Duration, logger *zap.SugaredLogger) *Queue {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Queue{
		pub:     pub,
		ch:      make(chan trade.Trade, size),
		timeout: timeout,
		logger:  logger,
	}
}

// Enqueue reports whether t was accepted.
func (q *Queue) Enqueue(t trade.Trade) bool {
	select {
	case q.ch <- t:
		return true
	default:
		q.logger.Warnw("trade_publish_dropped", "id", t.ID, "pair", t.Instrument)
		return false
	}
}

// Run publishes queued trades until ctx is done, then drains what is still
// buffered for at most one publish timeout before returning.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case t := <-q.ch:
			q.publish(ctx, t)
		}
	}
}

func (q *Queue) drain() {
	dctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	for {
		select {
		case t := <-q.ch:
			q.publish(dctx, t)
		default:
			return
		}
		if dctx.Err() != nil {
			if n := len(q.ch); n > 0 {
				q.logger.Warnw("trade_drain_abandoned", "remaining", n)
			}
			return
		}
	}
}

func (q *Queue) publish(ctx context.Context, t trade.Trade) {
	pctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	if err := q.pub.PublishTrade(pctx, t); err != nil {
		q.logger.Errorw("trade_publish_failed", "id", t.ID, "pair", t.Instrument, "err", err)
	}
}
