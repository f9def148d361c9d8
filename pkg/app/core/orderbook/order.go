package orderbook

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide accepts "BUY"/"SELL" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	}
	return 0, fmt.Errorf("invalid side %q", s)
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	side, err := ParseSide(str)
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// Order is a limit order as it rests on the book. There is no order id:
// two orders with the same side, price and instrument are the same price level.
type Order struct {
	Side       Side    `json:"side"`
	Price      int64   `json:"price"` // integer ticks
	Quantity   float64 `json:"quantity"`
	Instrument string  `json:"currencyPair"`
}

// samePriceLevel reports whether o and other collapse into one resting entry.
func (o Order) samePriceLevel(other Order) bool {
	return o.Side == other.Side && o.Price == other.Price && o.Instrument == other.Instrument
}

// compareOrders orders asks low to high and bids high to low.
func compareOrders(a, b Order) int {
	c := 0
	switch {
	case a.Price < b.Price:
		c = -1
	case a.Price > b.Price:
		c = 1
	}
	if a.Side == Buy {
		return -c
	}
	return c
}
