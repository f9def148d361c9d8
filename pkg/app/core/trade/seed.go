package trade

import (
	"time"

	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
)

// ExampleTrades returns the demo trade history. Ids are assigned on Load.
func ExampleTrades() []Trade {
	mk := func(price int64, qty float64, pair, at string, quote float64) Trade {
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			panic(err)
		}
		return Trade{
			Price:       price,
			Quantity:    qty,
			Instrument:  pair,
			TradedAt:    ts,
			TakerSide:   orderbook.Sell,
			QuoteVolume: quote,
		}
	}
	return []Trade{
		mk(1199677, 0.00213752, "BTCEUR", "2024-07-11T08:50:12.453Z", 2564.33358104),
		mk(1200677, 0.03225700, "BTCUSD", "2024-08-10T09:22:15.363Z", 38730.237989),
		mk(1230650, 0.00456120, "ETHZAR", "2024-09-15T18:32:16.363Z", 5613.24078),
		mk(1358400, 0.75689132, "ETHEUR", "2024-10-17T14:22:18.433Z", 1028161.169088),
		mk(1005522, 2.56879135, "ETHUSD", "2024-11-19T03:52:17.413Z", 2582976.2158347),
		mk(1015459, 0.56879135, "BTCZAR", "2022-10-11T13:44:24.571Z", 570680.8748647),
		mk(5168975, 0.56879135, "BTCZAR", "2022-10-11T13:44:24.571Z", 570680.8748647),
		mk(2159877, 0.56879135, "BTCZAR", "2022-10-11T13:44:24.571Z", 570680.8748647),
		mk(1111115, 0.56879135, "BTCZAR", "2022-10-11T13:44:24.571Z", 570680.8748647),
		mk(2222222, 0.56879135, "BTCZAR", "2022-10-11T13:44:24.571Z", 570680.8748647),
		mk(4567895, 0.56879135, "BTCZAR", "2022-10-11T13:44:24.571Z", 570680.8748647),
	}
}
