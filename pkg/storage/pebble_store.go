package storage

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
)

// PebbleTradeStore keeps the trade log in a Pebble instance backed by an
// in-memory filesystem. Nothing survives a restart.
type PebbleTradeStore struct {
	db *pebble.DB
}

func NewPebbleTradeStore() (*PebbleTradeStore, error) {
	db, err := pebble.Open("trades", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleTradeStore{db: db}, nil
}

func (s *PebbleTradeStore) Close() error { return s.db.Close() }

// Append persists a trade under its id. Trades are written with NoSync since
// the backing filesystem is memory.
func (s *PebbleTradeStore) Append(t trade.Trade) error {
	data, err := encodeTrade(t)
	if err != nil {
		return err
	}
	if err := s.db.Set(tradeKey(t.ID), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// All returns every trade in id order.
func (s *PebbleTradeStore) All() ([]trade.Trade, error) {
	prefix := tradePrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var trades []trade.Trade
	for iter.First(); iter.Valid(); iter.Next() {
		t, err := decodeTrade(iter.Value())
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, iter.Error()
}

// MaxID reads the last key of the trade prefix.
func (s *PebbleTradeStore) MaxID() (int64, bool, error) {
	prefix := tradePrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, false, iter.Error()
	}
	id, err := strconv.ParseInt(string(iter.Key()[len(prefix):]), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad trade key %q: %w", iter.Key(), err)
	}
	return id, true, nil
}

var _ trade.Store = (*PebbleTradeStore)(nil)
