package storage

import (
	"encoding/json"
	"fmt"

	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
)

func encodeTrade(t trade.Trade) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal trade %d: %w", t.ID, err)
	}
	return b, nil
}

func decodeTrade(b []byte) (trade.Trade, error) {
	var t trade.Trade
	if err := json.Unmarshal(b, &t); err != nil {
		return trade.Trade{}, fmt.Errorf("unmarshal trade: %w", err)
	}
	return t, nil
}
