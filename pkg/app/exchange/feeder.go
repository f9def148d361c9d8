package exchange

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/limitbook/pkg/app/core/orderbook"
)

// FeederConfig controls the demo order generator.
type FeederConfig struct {
	BatchSize int           // orders per tick
	Interval  time.Duration // tick period
	Pairs     []string
	BasePrice int64 // prices are drawn within ±Spread ticks of this
	Spread    int64
}

func DefaultFeederConfig() FeederConfig {
	return FeederConfig{
		BatchSize: 5,
		Interval:  500 * time.Millisecond,
		Pairs:     []string{"BTCZAR"},
		BasePrice: 1205000,
		Spread:    2500,
	}
}

// OrderGenerator creates random limit orders for demos and load tests.
type OrderGenerator struct {
	cfg FeederConfig
	rng *rand.Rand
}

func NewOrderGenerator(cfg FeederConfig, seed int64) *OrderGenerator {
	return &OrderGenerator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (g *OrderGenerator) Next() orderbook.Order {
	side := orderbook.Buy
	if g.rng.Intn(2) == 1 {
		side = orderbook.Sell
	}
	price := g.cfg.BasePrice
	if g.cfg.Spread > 0 {
		price += g.rng.Int63n(2*g.cfg.Spread+1) - g.cfg.Spread
	}
	if price < 1 {
		price = 1
	}
	return orderbook.Order{
		Side:       side,
		Price:      price,
		Quantity:   float64(g.rng.Intn(100)+1) / 1000, // 0.001 .. 0.100
		Instrument: g.cfg.Pairs[g.rng.Intn(len(g.cfg.Pairs))],
	}
}

// StartFeeder places generated orders on app until ctx is done.
// Returns a cancel function to stop the feeder
func StartFeeder(ctx context.Context, app *App, cfg FeederConfig, logger *zap.SugaredLogger) context.CancelFunc {
	if len(cfg.Pairs) == 0 {
		cfg.Pairs = DefaultFeederConfig().Pairs
	}
	gen := NewOrderGenerator(cfg, time.Now().UnixNano())
	feedCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		start := time.Now()
		total, fills := 0, 0
		logger.Infow("feeder_started", "batch", cfg.BatchSize, "interval", cfg.Interval, "pairs", cfg.Pairs)

		for {
			select {
			case <-feedCtx.Done():
				logger.Infow("feeder_stopped", "orders", total, "fills", fills, "elapsed", time.Since(start).Round(time.Second))
				return
			case <-ticker.C:
				for i := 0; i < cfg.BatchSize; i++ {
					t, err := app.PlaceLimitOrder(gen.Next())
					if err != nil {
						logger.Warnw("feeder_order_failed", "err", err)
						continue
					}
					total++
					if t != nil {
						fills++
					}
				}
			}
		}
	}()

	return cancel
}
