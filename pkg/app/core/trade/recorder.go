package trade

import (
	"fmt"
	"sync"

	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/limitbook/pkg/util"
)

// Recorder is the single writer of a trade log.
type Recorder struct {
	mu    sync.RWMutex
	store Store
	clock util.Clock
}

func NewRecorder(store Store, clock util.Clock) *Recorder {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Recorder{store: store, clock: clock}
}

// Record turns a filled taker order into a trade and appends it. The id is
// one past the largest id already in the log, or 0 for an empty log; reading
// the max and appending happen under one lock.
func (r *Recorder) Record(o orderbook.Order) (Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.nextID()
	if err != nil {
		return Trade{}, err
	}
	t := Trade{
		ID:          id,
		Price:       o.Price,
		Quantity:    o.Quantity,
		Instrument:  o.Instrument,
		TradedAt:    r.clock.Now(),
		TakerSide:   o.Side,
		QuoteVolume: float64(o.Price) * o.Quantity,
	}
	if err := r.store.Append(t); err != nil {
		return Trade{}, fmt.Errorf("append trade %d: %w", id, err)
	}
	return t, nil
}

// Load appends pre-built trades, assigning ids the same way Record does.
func (r *Recorder) Load(trades []Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range trades {
		id, err := r.nextID()
		if err != nil {
			return err
		}
		t.ID = id
		if err := r.store.Append(t); err != nil {
			return fmt.Errorf("append trade %d: %w", id, err)
		}
	}
	return nil
}

func (r *Recorder) nextID() (int64, error) {
	max, ok, err := r.store.MaxID()
	if err != nil {
		return 0, fmt.Errorf("read max trade id: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}

// FilterTrades returns up to limit trades of one instrument after skipping
// skip of them, in insertion order. Negative skip or limit count as zero.
func (r *Recorder) FilterTrades(instrument string, skip, limit int) ([]Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all, err := r.store.All()
	if err != nil {
		return nil, fmt.Errorf("read trades: %w", err)
	}

	out := make([]Trade, 0)
	if limit <= 0 {
		return out, nil
	}
	if skip < 0 {
		skip = 0
	}
	for _, t := range all {
		if t.Instrument != instrument {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
