package orderbook

// ExampleOrders returns the demo book loaded at startup when seeding is enabled.
func ExampleOrders() (bids, asks []Order) {
	asks = []Order{
		{Side: Sell, Quantity: 0.90038334, Price: 1186331, Instrument: "BTCEUR"},
		{Side: Sell, Quantity: 0.02350766, Price: 1202530, Instrument: "BTCEUR"},
		{Side: Sell, Quantity: 0.00100004, Price: 1203000, Instrument: "BTCZAR"},
		{Side: Sell, Quantity: 0.02352094, Price: 1205649, Instrument: "BTCZAR"},
		{Side: Sell, Quantity: 0.552, Price: 1205653, Instrument: "BTCZAR"},
		{Side: Sell, Quantity: 0.0008979, Price: 1205748, Instrument: "ETHUSD"},
		{Side: Sell, Quantity: 0.001, Price: 1207000, Instrument: "BTCZAR"},
	}
	bids = []Order{
		{Side: Buy, Quantity: 0.016, Price: 1204994, Instrument: "BTCZAR"},
		{Side: Buy, Quantity: 0.002036, Price: 1204993, Instrument: "BTCZAR"},
		{Side: Buy, Quantity: 0.18443981, Price: 1204991, Instrument: "ETHUSD"},
		{Side: Buy, Quantity: 0.00008142, Price: 1204811, Instrument: "BTCEUR"},
		{Side: Buy, Quantity: 0.02354031, Price: 1204657, Instrument: "BTCEUR"},
		{Side: Buy, Quantity: 0.11498758, Price: 1204532, Instrument: "BTCZAR"},
		{Side: Buy, Quantity: 0.05, Price: 1164656, Instrument: "BTCZAR"},
	}
	return bids, asks
}
