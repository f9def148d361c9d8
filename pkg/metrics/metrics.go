// Package metrics exposes venue counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// OrdersTotal counts accepted limit orders by pair, side and outcome (filled|rested).
	OrdersTotal *prometheus.CounterVec
	// TradesTotal counts recorded trades by pair.
	TradesTotal *prometheus.CounterVec
	// QuoteVolume sums price*quantity of recorded trades by pair.
	QuoteVolume *prometheus.CounterVec
	// RestingOrders is the current number of resting entries per side.
	RestingOrders *prometheus.GaugeVec
	// HTTPRequestsTotal counts API requests by route and status code.
	HTTPRequestsTotal *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Accepted limit orders",
		}, []string{"pair", "side", "outcome"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Recorded trades",
		}, []string{"pair"}),
		QuoteVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_quote_volume_total",
			Help:      "Sum of price*quantity over recorded trades",
		}, []string{"pair"}),
		RestingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Resting price levels across all pairs",
		}, []string{"side"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.OrdersTotal,
		m.TradesTotal,
		m.QuoteVolume,
		m.RestingOrders,
		m.HTTPRequestsTotal,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
