package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/limitbook/pkg/app/core/market"
	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
	"github.com/uhyunpark/limitbook/pkg/app/exchange"
	"github.com/uhyunpark/limitbook/pkg/auth"
	"github.com/uhyunpark/limitbook/pkg/metrics"
)

const (
	defaultTradesLimit = 10
	maxBodyBytes       = 1 << 16
)

type Options struct {
	Addr           string
	CORSOrigins    []string
	MaxTradesLimit int
}

// Server handles REST API and WebSocket connections
type Server struct {
	app     *exchange.App
	users   *auth.UserStore
	tokens  *auth.TokenIssuer
	metrics *metrics.Metrics // nil disables /metrics and request counting
	logger  *zap.SugaredLogger

	router     *mux.Router
	hub        *Hub
	opts       Options
	httpServer *http.Server
}

func NewServer(app *exchange.App, users *auth.UserStore, tokens *auth.TokenIssuer, m *metrics.Metrics, logger *zap.SugaredLogger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.MaxTradesLimit <= 0 {
		opts.MaxTradesLimit = 100
	}

	s := &Server{
		app:     app,
		users:   users,
		tokens:  tokens,
		metrics: m,
		logger:  logger,
		router:  mux.NewRouter(),
		hub:     NewHub(logger),
		opts:    opts,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.instrument)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/user/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/order/limit", s.requireAuth(s.handleCreateLimitOrder)).Methods("POST")
	api.HandleFunc("/pairs", s.handleGetPairs).Methods("GET")
	api.HandleFunc("/{currencyPair}/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/{currencyPair}/trades", s.handleGetTrades).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

func (s *Server) Hub() *Hub { return s.hub }

// Start runs the websocket hub and serves HTTP until Shutdown. The hub stops
// when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	s.logger.Infow("api_server_starting", "addr", s.opts.Addr, "cors_origins", s.opts.CORSOrigins)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("api_server_stopping")
	return s.httpServer.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, CodeMalformedLogin, msgMalformedLogin)
		return
	}

	u, err := s.users.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Infow("login_rejected", "username", req.Username)
			respondError(w, http.StatusUnauthorized, CodeInvalidLogin, msgInvalidLogin)
			return
		}
		s.logger.Errorw("login_failed", "err", err)
		respondError(w, http.StatusInternalServerError, 0, "internal error")
		return
	}

	token, err := s.tokens.Generate(u.Username)
	if err != nil {
		s.logger.Errorw("token_generate_failed", "err", err)
		respondError(w, http.StatusInternalServerError, 0, "internal error")
		return
	}
	s.logger.Infow("login_succeeded", "username", u.Username)
	respondJSON(w, LoginResponse{Bearer: token})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["currencyPair"]
	if !market.ValidPair(pair) {
		respondError(w, http.StatusBadRequest, CodeInvalidPair, msgInvalidPair)
		return
	}
	respondJSON(w, toOrderBookResponse(s.app.OrderBook(pair)))
}

func (s *Server) handleCreateLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req LimitOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidOrder, msgInvalidOrder)
		return
	}
	side, err := orderbook.ParseSide(req.Side)
	if err != nil || !req.Quantity.IsPositive() {
		respondError(w, http.StatusBadRequest, CodeInvalidOrder, msgInvalidOrder)
		return
	}
	// decimals beyond float64 range become ±Inf, tiny ones 0
	qty := req.Quantity.InexactFloat64()
	if math.IsInf(qty, 0) || math.IsNaN(qty) || qty <= 0 {
		respondError(w, http.StatusBadRequest, CodeInvalidOrder, msgInvalidOrder)
		return
	}

	order := orderbook.Order{
		Side:       side,
		Price:      req.Price,
		Quantity:   qty,
		Instrument: req.CurrencyPair,
	}
	t, err := s.app.PlaceLimitOrder(order)
	if err != nil {
		if errors.Is(err, exchange.ErrInvalidOrder) {
			respondError(w, http.StatusBadRequest, CodeInvalidOrder, msgInvalidOrder)
			return
		}
		s.logger.Errorw("order_failed", "err", err)
		respondError(w, http.StatusInternalServerError, 0, "internal error")
		return
	}

	s.logger.Infow("order_submitted",
		"user", usernameFrom(r.Context()),
		"pair", market.Normalize(order.Instrument),
		"side", side,
		"price", order.Price,
		"qty", req.Quantity.String(),
		"filled", t != nil,
	)
	respondText(w, msgOrderCreated)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["currencyPair"]
	if !market.ValidPair(pair) {
		respondError(w, http.StatusBadRequest, CodeInvalidPair, msgInvalidPair)
		return
	}

	q := r.URL.Query()
	skip, errSkip := intParam(q.Get("skip"), 0)
	limit, errLimit := intParam(q.Get("limit"), defaultTradesLimit)
	if errSkip != nil || errLimit != nil || skip < 0 || limit < 0 || limit > s.opts.MaxTradesLimit {
		respondError(w, http.StatusBadRequest, CodeInvalidPagination, fmt.Sprintf(msgInvalidPagination, s.opts.MaxTradesLimit))
		return
	}

	trades, err := s.app.Trades(pair, skip, limit)
	if err != nil {
		s.logger.Errorw("trades_read_failed", "pair", pair, "err", err)
		respondError(w, http.StatusInternalServerError, 0, "internal error")
		return
	}
	respondJSON(w, toTradeHistory(trades))
}

func (s *Server) handleGetPairs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, toPairInfos(s.app.ListPairs()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bids, asks := s.app.Depth()
	respondJSON(w, map[string]interface{}{
		"status":     "ok",
		"bids":       bids,
		"asks":       asks,
		"ws_clients": s.hub.ClientCount(),
	})
}

// ==============================
// Broadcasting
// ==============================

// BroadcastOrderbook pushes the current book of pair to "orderbook:<pair>" subscribers.
func (s *Server) BroadcastOrderbook(pair string) {
	s.hub.BroadcastToChannel(orderbookChannel(pair), "orderbook", toOrderBookResponse(s.app.OrderBook(pair)))
}

// BroadcastTrade pushes t to "trades:<pair>" subscribers.
func (s *Server) BroadcastTrade(t trade.Trade) {
	s.hub.BroadcastToChannel(tradesChannel(t.Instrument), "trade", toTradeInfo(t))
}

// ==============================
// Middleware
// ==============================

type ctxKey int

const usernameKey ctxKey = iota

func usernameFrom(ctx context.Context) string {
	u, _ := ctx.Value(usernameKey).(string)
	return u
}

// requireAuth admits requests carrying a valid "Authorization: Bearer <token>".
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, msgUnauthorized)
			return
		}
		username, err := s.tokens.Username(token)
		if err != nil {
			s.logger.Debugw("token_rejected", "err", err)
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, msgUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), usernameKey, username)))
	}
}

// instrument counts requests per route template and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// ==============================
// Helpers
// ==============================

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondText(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(msg))
}

func respondError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	})
}
