package orderbook

import (
	"sync"
	"time"

	"github.com/uhyunpark/limitbook/pkg/util"
)

// StampMode selects who advances LastChange/SequenceNumber.
type StampMode int8

const (
	// StampEngine stamps the book inside every Submit.
	StampEngine StampMode = iota
	// StampService leaves stamping to the caller via Engine.Stamp.
	StampService
)

type Option func(*Engine)

func WithClock(c util.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithStampMode(m StampMode) Option {
	return func(e *Engine) { e.stampMode = m }
}

// Engine is the only writer of its Book. Submit runs scan and mutation under one
// write lock, so two takers can never both see the same maker as eligible.
type Engine struct {
	mu        sync.RWMutex
	book      *Book
	clock     util.Clock
	stampMode StampMode
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		book:  NewBook(),
		clock: util.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) StampMode() StampMode { return e.stampMode }

// Submit matches o against the opposite side or rests it on the book.
//
// The opposite side is scanned best price first for the first resting order of
// the same instrument that both crosses o's limit and holds at least o's
// quantity. Orders of other instruments are never eligible, even when they
// cross on price. A better-priced maker that is too small is skipped. On a
// match o is filled in full against that single maker and returned with
// ok=true; the maker shrinks by o's quantity or leaves the book when nothing
// remains.
//
// Without a match o merges into a same-price level on its own side, or is
// inserted as a new level, and ok is false.
func (e *Engine) Submit(o Order) (filled Order, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	filled, ok = e.submit(o)
	if e.stampMode == StampEngine {
		e.book.Stamp(e.clock.Now())
	}
	return filled, ok
}

func (e *Engine) submit(o Order) (Order, bool) {
	opposite := e.book.side(opposite(o.Side))
	for i := range *opposite {
		maker := &(*opposite)[i]
		if maker.Instrument != o.Instrument || !crosses(o, *maker) || maker.Quantity < o.Quantity {
			continue
		}
		// exact compare: quantities come from the same float arithmetic
		remainder := maker.Quantity - o.Quantity
		if remainder == 0 {
			e.book.Remove(*maker)
		} else {
			maker.Quantity = remainder
		}
		return o, true
	}

	same := e.book.side(o.Side)
	for i := range *same {
		if (*same)[i].samePriceLevel(o) {
			(*same)[i].Quantity += o.Quantity
			return Order{}, false
		}
	}

	e.book.Insert(o)
	return Order{}, false
}

// SubmitAndStamp is Submit followed by a stamp at t, inside one critical
// section, so readers never see the new sides with the old stamp. It stamps
// regardless of the engine's StampMode and is how StampService callers submit.
func (e *Engine) SubmitAndStamp(o Order, t time.Time) (filled Order, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	filled, ok = e.submit(o)
	e.book.Stamp(t)
	return filled, ok
}

// Stamp marks a mutation made outside Submit.
func (e *Engine) Stamp(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book.Stamp(t)
}

// Seed replaces the whole book. Startup only.
func (e *Engine) Seed(bids, asks []Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book.Replace(bids, asks)
	e.book.Stamp(e.clock.Now())
}

// FilterBook returns a copy of one instrument's bids and asks.
func (e *Engine) FilterBook(instrument string) OrderBook {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Filter(instrument)
}

// Depth returns the number of resting bids and asks across all instruments.
func (e *Engine) Depth() (bids, asks int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.book.bids), len(e.book.asks)
}

func opposite(s Side) Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// crosses reports whether taker's limit reaches maker's price.
func crosses(taker, maker Order) bool {
	if taker.Side == Buy {
		return maker.Price <= taker.Price
	}
	return maker.Price >= taker.Price
}
