package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/limitbook/params"
	"github.com/uhyunpark/limitbook/pkg/api"
	"github.com/uhyunpark/limitbook/pkg/app/core/market"
	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/limitbook/pkg/app/core/trade"
	"github.com/uhyunpark/limitbook/pkg/app/exchange"
	"github.com/uhyunpark/limitbook/pkg/auth"
	"github.com/uhyunpark/limitbook/pkg/events"
	"github.com/uhyunpark/limitbook/pkg/metrics"
	"github.com/uhyunpark/limitbook/pkg/storage"
	"github.com/uhyunpark/limitbook/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "level", cfg.Log.Level, "log_file", cfg.Log.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugar); err != nil {
		sugar.Fatalw("server_failed", "err", err)
	}
	sugar.Info("server_stopped")
}

func newLogger(cfg params.Log) (*zap.Logger, error) {
	if cfg.File != "" {
		return util.NewLoggerWithFile(cfg.File, cfg.Level)
	}
	return util.NewLogger(cfg.Level)
}

func run(ctx context.Context, cfg params.Config, sugar *zap.SugaredLogger) error {
	clock := util.RealClock{}

	// ---- Trade log ----
	var store trade.Store
	switch cfg.Book.TradeStore {
	case "pebble":
		ps, err := storage.NewPebbleTradeStore()
		if err != nil {
			return fmt.Errorf("open trade store: %w", err)
		}
		defer ps.Close()
		store = ps
	case "memory", "":
		store = trade.NewMemoryStore()
	default:
		return fmt.Errorf("unknown TRADE_STORE %q", cfg.Book.TradeStore)
	}

	// ---- Engine ----
	stampMode := orderbook.StampEngine
	switch cfg.Book.StampMode {
	case "service":
		stampMode = orderbook.StampService
	case "engine", "":
	default:
		return fmt.Errorf("unknown BOOK_STAMP %q", cfg.Book.StampMode)
	}
	engine := orderbook.NewEngine(orderbook.WithClock(clock), orderbook.WithStampMode(stampMode))
	recorder := trade.NewRecorder(store, clock)

	pairs := market.NewRegistry()
	for _, p := range market.DefaultPairs() {
		if err := pairs.Register(p); err != nil {
			return err
		}
	}

	app := exchange.NewApp(engine, recorder, pairs, clock, sugar.Named("exchange"))
	if cfg.Book.Seed {
		if err := app.Seed(); err != nil {
			return err
		}
	}
	sugar.Infow("exchange_ready",
		"trade_store", cfg.Book.TradeStore,
		"stamp_mode", cfg.Book.StampMode,
		"pairs", pairs.Count(),
		"seeded", cfg.Book.Seed)

	// ---- Auth ----
	users := auth.NewUserStore()
	if err := users.AddAdmin(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return err
	}
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clock)

	// ---- API ----
	m := metrics.New("limitbook")
	apiServer := api.NewServer(app, users, tokens, m, sugar.Named("api"), api.Options{
		Addr:           cfg.API.Addr,
		CORSOrigins:    cfg.API.CORSOrigins,
		MaxTradesLimit: cfg.API.MaxTradesLimit,
	})

	// ---- Trade events (optional) ----
	var queue *events.Queue
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer pub.Close()
		queue = events.NewQueue(pub, 1024, 5*time.Second, sugar.Named("events"))
		qctx, stopQueue := context.WithCancel(ctx)
		queueDone := make(chan struct{})
		go func() {
			defer close(queueDone)
			queue.Run(qctx)
		}()
		// runs before pub.Close so buffered trades are flushed first
		defer func() {
			stopQueue()
			<-queueDone
		}()
		sugar.Infow("kafka_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	wireHooks(app, apiServer, m, queue)

	// ---- Order feeder (optional) ----
	if cfg.Feeder.Enabled {
		fcfg := exchange.DefaultFeederConfig()
		fcfg.BatchSize = cfg.Feeder.BatchSize
		fcfg.Interval = cfg.Feeder.Interval
		cancelFeeder := exchange.StartFeeder(ctx, app, fcfg, sugar.Named("feeder"))
		defer cancelFeeder()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- apiServer.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	return <-errCh
}

// wireHooks connects exchange events to metrics, websocket pushes and the
// optional trade queue.
func wireHooks(app *exchange.App, apiServer *api.Server, m *metrics.Metrics, queue *events.Queue) {
	app.OnOrder = func(o orderbook.Order, filled bool) {
		outcome := "rested"
		if filled {
			outcome = "filled"
		}
		m.OrdersTotal.WithLabelValues(o.Instrument, o.Side.String(), outcome).Inc()
	}

	app.OnTrade = func(t trade.Trade) {
		m.TradesTotal.WithLabelValues(t.Instrument).Inc()
		m.QuoteVolume.WithLabelValues(t.Instrument).Add(t.QuoteVolume)
		apiServer.BroadcastTrade(t)
		if queue != nil {
			queue.Enqueue(t)
		}
	}

	app.OnBookChange = func(pair string) {
		bids, asks := app.Depth()
		m.RestingOrders.WithLabelValues("bid").Set(float64(bids))
		m.RestingOrders.WithLabelValues("ask").Set(float64(asks))
		apiServer.BroadcastOrderbook(pair)
	}
}
