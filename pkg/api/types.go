package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/limitbook/pkg/app/core/market"
	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidPair       = -21
	CodeInvalidPagination = -22
	CodeInvalidOrder      = -23
	CodeInvalidLogin      = -24
	CodeMalformedLogin    = -25
	CodeUnauthorized      = -26
)

const (
	msgInvalidPair       = "Invalid currency pair. Please provide a 6 character currency pair - valid example: BTCZAR | btczar."
	msgInvalidPagination = "Invalid skip or limit value. Please provide a positive integer value for skip and limit (max limit is %d)."
	msgInvalidOrder      = "Invalid limitOrder. Please provide a 6 character currency pair - valid example: BTCZAR | btczar.\n" +
		"Quantity and price must be greater than 0.\n" +
		"Side must be either 'BUY' or 'SELL'."
	msgInvalidLogin   = "Invalid login request. Invalid username or password."
	msgMalformedLogin = "Invalid login request. Please provide a username and password."
	msgUnauthorized   = "Unauthorized. Please provide a valid Bearer token."

	msgOrderCreated = "Limit order created successfully."
)

// ==============================
// REST Request Types
// ==============================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LimitOrderRequest is the payload for POST /api/order/limit. Quantity accepts
// a JSON number or a decimal string.
type LimitOrderRequest struct {
	Side         string          `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        int64           `json:"price"`
	CurrencyPair string          `json:"currencyPair"`
}

// ==============================
// REST Response Types
// ==============================

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type LoginResponse struct {
	Bearer string `json:"Bearer"`
}

// OrderInfo is one resting order. Quantities render as decimal strings so
// clients never see float artifacts.
type OrderInfo struct {
	Side         string          `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        int64           `json:"price"`
	CurrencyPair string          `json:"currencyPair"`
}

// OrderBookResponse mirrors orderbook.OrderBook; asks low to high, bids high to low.
type OrderBookResponse struct {
	Asks           []OrderInfo `json:"asks"`
	Bids           []OrderInfo `json:"bids"`
	LastChange     string      `json:"lastChange"`
	SequenceNumber uint64      `json:"sequenceNumber"`
}

type TradeInfo struct {
	ID           int64           `json:"id"`
	Price        int64           `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	CurrencyPair string          `json:"currencyPair"`
	TradedAt     string          `json:"tradedAt"`
	TakerSide    string          `json:"takerSide"`
	QuoteVolume  decimal.Decimal `json:"quoteVolume"`
}

type TradeHistoryResponse struct {
	Trades []TradeInfo `json:"trades"`
}

type PairInfo struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSMessage is the envelope of every pushed update.
type WSMessage struct {
	Type    string      `json:"type"`    // "orderbook" or "trade"
	Channel string      `json:"channel"` // e.g. "orderbook:BTCZAR"
	Data    interface{} `json:"data"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["orderbook:BTCZAR", "trades:BTCZAR"]
}

func orderbookChannel(pair string) string { return "orderbook:" + pair }
func tradesChannel(pair string) string    { return "trades:" + pair }

// ==============================
// Conversions
// ==============================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toOrderInfos(orders []orderbook.Order) []OrderInfo {
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = OrderInfo{
			Side:         o.Side.String(),
			Quantity:     decimal.NewFromFloat(o.Quantity),
			Price:        o.Price,
			CurrencyPair: o.Instrument,
		}
	}
	return out
}

func toOrderBookResponse(b orderbook.OrderBook) OrderBookResponse {
	return OrderBookResponse{
		Asks:           toOrderInfos(b.Asks),
		Bids:           toOrderInfos(b.Bids),
		LastChange:     formatTime(b.LastChange),
		SequenceNumber: b.SequenceNumber,
	}
}

func toTradeInfo(t trade.Trade) TradeInfo {
	return TradeInfo{
		ID:           t.ID,
		Price:        t.Price,
		Quantity:     decimal.NewFromFloat(t.Quantity),
		CurrencyPair: t.Instrument,
		TradedAt:     formatTime(t.TradedAt),
		TakerSide:    t.TakerSide.String(),
		QuoteVolume:  decimal.NewFromFloat(t.QuoteVolume),
	}
}

func toTradeHistory(trades []trade.Trade) TradeHistoryResponse {
	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = toTradeInfo(t)
	}
	return TradeHistoryResponse{Trades: out}
}

func toPairInfos(pairs []market.Pair) []PairInfo {
	out := make([]PairInfo, len(pairs))
	for i, p := range pairs {
		out[i] = PairInfo{Symbol: p.Symbol, BaseAsset: p.BaseAsset, QuoteAsset: p.QuoteAsset}
	}
	return out
}
