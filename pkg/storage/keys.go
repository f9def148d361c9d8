package storage

import (
	"fmt"
)

// Key schema:
//   trade:<id, 20 digits> → Trade (JSON)
// Ids are zero-padded so lexicographic order is id order, which is also
// insertion order for a single-writer recorder.

const prefixTrade = "trade:"

// tradeKey returns the key for a trade
// Format: "trade:{tradeID}"
func tradeKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixTrade, id))
}

// tradePrefix returns the prefix shared by all trades
func tradePrefix() []byte {
	return []byte(prefixTrade)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
