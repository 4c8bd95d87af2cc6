package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics records swap activity and the most recent solvency figure.
type ExchangeMetrics struct {
	swaps     *prometheus.CounterVec
	feeEvents prometheus.Counter
	ratio     prometheus.Gauge
}

var (
	exchangeMetricsOnce sync.Once
	exchangeRegistry    *ExchangeMetrics
)

// Exchange returns the lazily-initialised exchange metrics registry.
func Exchange() *ExchangeMetrics {
	exchangeMetricsOnce.Do(func() {
		exchangeRegistry = &ExchangeMetrics{
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "hubfx",
				Subsystem: "exchange",
				Name:      "swaps_total",
				Help:      "Total swap calls segmented by direction and outcome.",
			}, []string{"direction", "outcome"}),
			feeEvents: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "hubfx",
				Subsystem: "exchange",
				Name:      "fee_transfers_total",
				Help:      "Total fee transfers routed to the treasury.",
			}),
			ratio: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "hubfx",
				Subsystem: "exchange",
				Name:      "reserve_ratio",
				Help:      "Most recently computed finite reserve ratio (1.0 = 100%).",
			}),
		}
		prometheus.MustRegister(exchangeRegistry.swaps, exchangeRegistry.feeEvents, exchangeRegistry.ratio)
	})
	return exchangeRegistry
}

// CountSwap records one swap call outcome.
func (m *ExchangeMetrics) CountSwap(direction, outcome string) {
	if m == nil {
		return
	}
	m.swaps.WithLabelValues(direction, outcome).Inc()
}

// CountFeeTransfer records one fee routed to the treasury.
func (m *ExchangeMetrics) CountFeeTransfer() {
	if m == nil {
		return
	}
	m.feeEvents.Inc()
}

// ObserveReserveRatio publishes a finite reserve ratio. The 18-decimal fixed
// point value is reduced to a float gauge; precision loss is acceptable for
// dashboards.
func (m *ExchangeMetrics) ObserveReserveRatio(ratio *big.Int) {
	if m == nil || ratio == nil {
		return
	}
	value, _ := new(big.Float).Quo(
		new(big.Float).SetInt(ratio),
		big.NewFloat(1e18),
	).Float64()
	m.ratio.Set(value)
}
