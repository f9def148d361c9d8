package exchange

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/limitbook/pkg/app/core/market"
	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
	"github.com/uhyunpark/limitbook/pkg/util"
)

var ErrInvalidOrder = errors.New("invalid limit order")

// App owns the venue's single engine and trade recorder. Every order goes
// through PlaceLimitOrder so submit and record run as one step and trade ids
// follow fill order.
type App struct {
	mu       sync.Mutex
	engine   *orderbook.Engine
	recorder *trade.Recorder
	pairs    *market.Registry
	clock    util.Clock
	logger   *zap.SugaredLogger

	// Hooks run after the order is fully applied, outside the lock.
	OnOrder      func(o orderbook.Order, filled bool)
	OnTrade      func(t trade.Trade)
	OnBookChange func(pair string)
}

func NewApp(engine *orderbook.Engine, recorder *trade.Recorder, pairs *market.Registry, clock util.Clock, logger *zap.SugaredLogger) *App {
	if clock == nil {
		clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		engine:   engine,
		recorder: recorder,
		pairs:    pairs,
		clock:    clock,
		logger:   logger,
	}
}

// Seed loads the example book and trade history.
func (a *App) Seed() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	bids, asks := orderbook.ExampleOrders()
	a.engine.Seed(bids, asks)
	if err := a.recorder.Load(trade.ExampleTrades()); err != nil {
		return fmt.Errorf("seed trades: %w", err)
	}
	a.logger.Infow("book_seeded", "bids", len(bids), "asks", len(asks))
	return nil
}

// Validate checks the preconditions the engine relies on and normalizes the pair.
func Validate(o orderbook.Order) (orderbook.Order, error) {
	if !market.ValidPair(o.Instrument) {
		return o, fmt.Errorf("%w: currency pair %q", ErrInvalidOrder, o.Instrument)
	}
	if o.Side != orderbook.Buy && o.Side != orderbook.Sell {
		return o, fmt.Errorf("%w: side %d", ErrInvalidOrder, o.Side)
	}
	if o.Quantity <= 0 || math.IsInf(o.Quantity, 0) || math.IsNaN(o.Quantity) {
		return o, fmt.Errorf("%w: quantity %v", ErrInvalidOrder, o.Quantity)
	}
	if o.Price <= 0 {
		return o, fmt.Errorf("%w: price %d", ErrInvalidOrder, o.Price)
	}
	o.Instrument = market.Normalize(o.Instrument)
	return o, nil
}

// PlaceLimitOrder validates o, runs it through the engine and records a trade
// when it fills. The returned trade is nil when the order rests.
func (a *App) PlaceLimitOrder(o orderbook.Order) (*trade.Trade, error) {
	o, err := Validate(o)
	if err != nil {
		return nil, err
	}

	t, filled, err := a.apply(o)
	if err != nil {
		return nil, err
	}

	if a.OnOrder != nil {
		a.OnOrder(o, filled)
	}
	if t != nil && a.OnTrade != nil {
		a.OnTrade(*t)
	}
	if a.OnBookChange != nil {
		a.OnBookChange(o.Instrument)
	}
	return t, nil
}

func (a *App) apply(o orderbook.Order) (*trade.Trade, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.pairs.Ensure(o.Instrument); err != nil {
		return nil, false, err
	}

	var (
		filled orderbook.Order
		ok     bool
	)
	if a.engine.StampMode() == orderbook.StampService {
		filled, ok = a.engine.SubmitAndStamp(o, a.clock.Now())
	} else {
		filled, ok = a.engine.Submit(o)
	}
	if !ok {
		a.logger.Debugw("order_rested", "pair", o.Instrument, "side", o.Side, "price", o.Price, "qty", o.Quantity)
		return nil, false, nil
	}

	t, err := a.recorder.Record(filled)
	if err != nil {
		// the book already moved; the fill is lost from history but not from the book
		a.logger.Errorw("trade_record_failed", "pair", o.Instrument, "err", err)
		return nil, true, fmt.Errorf("record trade: %w", err)
	}
	a.logger.Infow("trade_recorded", "id", t.ID, "pair", t.Instrument, "side", t.TakerSide, "price", t.Price, "qty", t.Quantity)
	return &t, true, nil
}

func (a *App) OrderBook(pair string) orderbook.OrderBook {
	return a.engine.FilterBook(market.Normalize(pair))
}

func (a *App) Trades(pair string, skip, limit int) ([]trade.Trade, error) {
	return a.recorder.FilterTrades(market.Normalize(pair), skip, limit)
}

func (a *App) ListPairs() []market.Pair {
	return a.pairs.List()
}

// Depth reports resting entries per side across all pairs.
func (a *App) Depth() (bids, asks int) {
	return a.engine.Depth()
}
