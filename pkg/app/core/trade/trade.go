package trade

import (
	"sync"
	"time"

	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
)

// Trade is an executed taker order. Price and Quantity are the taker's.
type Trade struct {
	ID          int64          `json:"id"`
	Price       int64          `json:"price"`
	Quantity    float64        `json:"quantity"`
	Instrument  string         `json:"currencyPair"`
	TradedAt    time.Time      `json:"tradedAt"`
	TakerSide   orderbook.Side `json:"takerSide"`
	QuoteVolume float64        `json:"quoteVolume"`
}

// Store is the append-only backing log of a Recorder. Implementations keep
// insertion order.
type Store interface {
	Append(t Trade) error
	All() ([]Trade, error)
	// MaxID reports the largest id in the log; ok is false for an empty log.
	MaxID() (id int64, ok bool, err error)
}

// MemoryStore keeps the log in a slice.
type MemoryStore struct {
	mu     sync.RWMutex
	trades []Trade
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(t Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

func (s *MemoryStore) All() ([]Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Trade, len(s.trades))
	copy(out, s.trades)
	return out, nil
}

func (s *MemoryStore) MaxID() (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.trades) == 0 {
		return 0, false, nil
	}
	max := s.trades[0].ID
	for _, t := range s.trades[1:] {
		if t.ID > max {
			max = t.ID
		}
	}
	return max, true, nil
}

var _ Store = (*MemoryStore)(nil)
