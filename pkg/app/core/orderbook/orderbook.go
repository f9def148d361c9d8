package orderbook

import (
	"fmt"
	"sort"
	"time"
)

// OrderBook is a point-in-time copy of the book. Bids are sorted high to low,
// asks low to high (best price first on both sides).
type OrderBook struct {
	Bids           []Order   `json:"bids"`
	Asks           []Order   `json:"asks"`
	LastChange     time.Time `json:"lastChange"`
	SequenceNumber uint64    `json:"sequenceNumber"`
}

// Book is the mutable store behind the Engine. It is not safe for concurrent
// use on its own; the Engine serialises every access.
type Book struct {
	bids []Order
	asks []Order

	lastChange time.Time
	seq        uint64
}

func NewBook() *Book {
	return &Book{
		bids: make([]Order, 0),
		asks: make([]Order, 0),
	}
}

func (b *Book) side(s Side) *[]Order {
	if s == Buy {
		return &b.bids
	}
	return &b.asks
}

// Insert appends o to its side and re-sorts that side only.
func (b *Book) Insert(o Order) {
	orders := b.side(o.Side)
	*orders = append(*orders, o)
	sortSide(*orders)
}

// Remove deletes the first resting order value-equal to o. The caller must have
// observed o on the book under the same lock, so a miss is a programming error.
func (b *Book) Remove(o Order) {
	orders := b.side(o.Side)
	for i, resting := range *orders {
		if resting == o {
			*orders = append((*orders)[:i], (*orders)[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("orderbook: remove of absent order %+v", o))
}

// Filter returns a copy holding only the orders of one instrument.
func (b *Book) Filter(instrument string) OrderBook {
	return OrderBook{
		Bids:           filterOrders(b.bids, instrument),
		Asks:           filterOrders(b.asks, instrument),
		LastChange:     b.lastChange,
		SequenceNumber: b.seq,
	}
}

// Stamp records a mutation: lastChange moves to t and the sequence number advances.
func (b *Book) Stamp(t time.Time) {
	b.lastChange = t
	b.seq++
}

// Replace swaps both sides wholesale. Used for seeding only.
func (b *Book) Replace(bids, asks []Order) {
	b.bids = append(make([]Order, 0, len(bids)), bids...)
	b.asks = append(make([]Order, 0, len(asks)), asks...)
	sortSide(b.bids)
	sortSide(b.asks)
}

func filterOrders(orders []Order, instrument string) []Order {
	out := make([]Order, 0)
	for _, o := range orders {
		if o.Instrument == instrument {
			out = append(out, o)
		}
	}
	return out
}

// sortSide is stable so equal prices keep insertion order.
func sortSide(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return compareOrders(orders[i], orders[j]) < 0
	})
}
