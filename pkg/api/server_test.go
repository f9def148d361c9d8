package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/limitbook/pkg/app/core/market"
	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
	"github.com/uhyunpark/limitbook/pkg/app/exchange"
	"github.com/uhyunpark/limitbook/pkg/auth"
	"github.com/uhyunpark/limitbook/pkg/metrics"
	"github.com/uhyunpark/limitbook/pkg/util"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	app     *exchange.App
	tokens  *auth.TokenIssuer
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := util.NewManualClock(time.Date(2024, 7, 11, 8, 0, 0, 0, time.UTC))
	engine := orderbook.NewEngine(orderbook.WithClock(clock))
	recorder := trade.NewRecorder(trade.NewMemoryStore(), clock)
	app := exchange.NewApp(engine, recorder, market.NewRegistry(), clock, nil)

	users := auth.NewUserStore()
	require.NoError(t, users.AddAdmin("admin", "admin"))
	tokens := auth.NewTokenIssuer("test-secret", time.Hour, clock)
	m := metrics.New("limitbook_test")

	s := NewServer(app, users, tokens, m, nil, Options{CORSOrigins: []string{"http://localhost:3000"}})
	return &testEnv{server: s, handler: s.Handler(), app: app, tokens: tokens, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, err := e.tokens.Generate("admin")
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  int
	}{
		{name: "valid", body: `{"username":"admin","password":"admin"}`, wantCode: http.StatusOK},
		{name: "wrong password", body: `{"username":"admin","password":"admin1"}`, wantCode: http.StatusUnauthorized, wantErr: CodeInvalidLogin},
		{name: "missing username", body: `{"password":"admin"}`, wantCode: http.StatusBadRequest, wantErr: CodeMalformedLogin},
		{name: "missing password", body: `{"username":"admin"}`, wantCode: http.StatusBadRequest, wantErr: CodeMalformedLogin},
		{name: "malformed json", body: `{"username":`, wantCode: http.StatusBadRequest, wantErr: CodeMalformedLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/user/login", tt.body, "")
			require.Equal(t, tt.wantCode, rec.Code)

			if tt.wantErr != 0 {
				assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
				return
			}
			var resp LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			username, err := env.tokens.Username(resp.Bearer)
			require.NoError(t, err)
			assert.Equal(t, "admin", username)
		})
	}
}

func TestGetOrderbook(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Sell, Quantity: 0.1, Price: 101, Instrument: "BTCZAR"})
	require.NoError(t, err)
	_, err = env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Buy, Quantity: 0.2, Price: 99, Instrument: "BTCZAR"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/btczar/orderbook", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var book OrderBookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	require.Len(t, book.Asks, 1)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "SELL", book.Asks[0].Side)
	assert.Equal(t, "0.1", book.Asks[0].Quantity.String())
	assert.Equal(t, int64(99), book.Bids[0].Price)
	assert.Equal(t, uint64(2), book.SequenceNumber)
	assert.Equal(t, "2024-07-11T08:00:00Z", book.LastChange)

	for _, pair := range []string{"BTCZAR1", "BTC@AR", "BTC"} {
		t.Run(pair, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/"+pair+"/orderbook", "", "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, CodeInvalidPair, resp.Code)
			assert.Equal(t, msgInvalidPair, resp.Message)
		})
	}
}

func TestGetOrderbook_UnknownPairIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/XRPZAR/orderbook", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"asks":[],"bids":[],"lastChange":"","sequenceNumber":0}`, rec.Body.String())
}

func TestCreateLimitOrder(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	t.Run("requires token", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/order/limit", `{"side":"SELL","quantity":0.5,"price":100,"currencyPair":"BTCZAR"}`, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, CodeUnauthorized, decodeError(t, rec).Code)
	})

	t.Run("rejects bad token", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/order/limit", `{"side":"SELL","quantity":0.5,"price":100,"currencyPair":"BTCZAR"}`, "not-a-jwt")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rests then fills", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/order/limit", `{"side":"SELL","quantity":0.5,"price":100,"currencyPair":"btczar"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, msgOrderCreated, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/order/limit", `{"side":"buy","quantity":"0.5","price":100,"currencyPair":"BTCZAR"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)

		trades, err := env.app.Trades("BTCZAR", 0, 10)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, orderbook.Buy, trades[0].TakerSide)
		assert.Empty(t, env.app.OrderBook("BTCZAR").Asks)
	})

	invalid := []struct {
		name string
		body string
	}{
		{name: "zero quantity and price", body: `{"side":"SELL","quantity":0,"price":0,"currencyPair":"BTCZAR"}`},
		{name: "negative quantity", body: `{"side":"SELL","quantity":-1,"price":10,"currencyPair":"BTCZAR"}`},
		{name: "bad side", body: `{"side":"HOLD","quantity":1,"price":10,"currencyPair":"BTCZAR"}`},
		{name: "bad pair", body: `{"side":"BUY","quantity":1,"price":10,"currencyPair":"BTC@AR"}`},
		{name: "malformed", body: `{"side":`},
		{name: "quantity overflows float64", body: `{"side":"SELL","quantity":"1e400","price":100,"currencyPair":"BTCZAR"}`},
		{name: "quantity underflows to zero", body: `{"side":"SELL","quantity":"1e-400","price":100,"currencyPair":"BTCZAR"}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/order/limit", tt.body, token)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, CodeInvalidOrder, resp.Code)
			assert.Equal(t, msgInvalidOrder, resp.Message)
		})
	}

	// rejected orders never reach the book, so reads keep working
	rec := env.do(t, http.MethodGet, "/api/BTCZAR/orderbook", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var book OrderBookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Empty(t, book.Asks)
}

func TestGetTrades(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		_, err := env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Sell, Quantity: 1, Price: 100, Instrument: "BTCZAR"})
		require.NoError(t, err)
		tr, err := env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Buy, Quantity: 1, Price: 100, Instrument: "BTCZAR"})
		require.NoError(t, err)
		require.NotNil(t, tr)
	}

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{name: "defaults", query: "", wantIDs: []int64{0, 1, 2}},
		{name: "skip", query: "?skip=1", wantIDs: []int64{1, 2}},
		{name: "limit", query: "?skip=0&limit=2", wantIDs: []int64{0, 1}},
		{name: "zero limit", query: "?limit=0", wantIDs: []int64{}},
		{name: "skip past end", query: "?skip=5", wantIDs: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/BTCZAR/trades"+tt.query, "", "")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp TradeHistoryResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Trades)
			ids := make([]int64, 0, len(resp.Trades))
			for _, tr := range resp.Trades {
				ids = append(ids, tr.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	bad := []struct {
		name     string
		path     string
		wantCode int
	}{
		{name: "negative skip", path: "/api/BTCZAR/trades?skip=-1&limit=10", wantCode: CodeInvalidPagination},
		{name: "negative limit", path: "/api/BTCZAR/trades?skip=0&limit=-1", wantCode: CodeInvalidPagination},
		{name: "limit over max", path: "/api/BTCZAR/trades?skip=0&limit=101", wantCode: CodeInvalidPagination},
		{name: "non-integer", path: "/api/BTCZAR/trades?skip=abc", wantCode: CodeInvalidPagination},
		{name: "bad pair", path: "/api/BTC@AR/trades?skip=0&limit=10", wantCode: CodeInvalidPair},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "", "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestTradeRendering(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Buy, Quantity: 0.3, Price: 1000, Instrument: "ETHZAR"})
	require.NoError(t, err)
	_, err = env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Sell, Quantity: 0.1, Price: 1000, Instrument: "ETHZAR"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/ETHZAR/trades", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Trades []map[string]interface{} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Trades, 1)
	tr := raw.Trades[0]
	assert.Equal(t, "0.1", tr["quantity"])
	assert.Equal(t, "100", tr["quoteVolume"])
	assert.Equal(t, "SELL", tr["takerSide"])
	assert.Equal(t, "ETHZAR", tr["currencyPair"])
	assert.Equal(t, "2024-07-11T08:00:00Z", tr["tradedAt"])
}

func TestPairsHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Buy, Quantity: 1, Price: 1, Instrument: "ethusd"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/pairs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"symbol":"ETHUSD","baseAsset":"ETH","quoteAsset":"USD"}]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	env.do(t, http.MethodGet, "/api/BTC@AR/orderbook", "", "")

	rec = env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `limitbook_test_http_requests_total{code="200",route="/api/pairs"} 1`)
	assert.Contains(t, body, `limitbook_test_http_requests_total{code="400",route="/api/{currencyPair}/orderbook"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/order/limit", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func subscribed(h *Hub, channel string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.IsSubscribed(channel) {
			return true
		}
	}
	return false
}

func TestWebSocketBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.server.Hub().Run(ctx)

	env.app.OnTrade = env.server.BroadcastTrade
	env.app.OnBookChange = env.server.BroadcastOrderbook

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	sub, _ := json.Marshal(WSSubscribeRequest{Op: "subscribe", Channels: []string{"trades:BTCZAR"}})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, sub))
	require.Eventually(t, func() bool { return subscribed(env.server.Hub(), "trades:BTCZAR") }, 2*time.Second, 10*time.Millisecond)

	_, err = env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Sell, Quantity: 0.25, Price: 500, Instrument: "BTCZAR"})
	require.NoError(t, err)
	_, err = env.app.PlaceLimitOrder(orderbook.Order{Side: orderbook.Buy, Quantity: 0.25, Price: 500, Instrument: "BTCZAR"})
	require.NoError(t, err)

	// only the trade channel was subscribed, so the first message is the trade
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type    string    `json:"type"`
		Channel string    `json:"channel"`
		Data    TradeInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(msg)).Decode(&got))
	assert.Equal(t, "trade", got.Type)
	assert.Equal(t, "trades:BTCZAR", got.Channel)
	assert.Equal(t, int64(0), got.Data.ID)
	assert.Equal(t, "BUY", got.Data.TakerSide)
}
