package metrics

import "github.com/prometheus/client_golang/prometheus"

// MarketplaceMetrics covers listing engine recomputes, mounted sessions and chart renders.
type MarketplaceMetrics struct {
	recomputes  *prometheus.CounterVec
	resultSize  prometheus.Histogram
	sessions    prometheus.Gauge
	chartRender *prometheus.CounterVec
}

// NewMarketplaceMetrics registers the marketplace collectors on reg.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	recomputes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "_marketplace_recompute_total",
		Help: "Listing view recomputations by triggering operation.",
	}, []string{"op"})
	resultSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    namespace + "_marketplace_result_size",
		Help:    "Number of listings matching the active filters after a recompute.",
		Buckets: []float64{0, 1, 5, 12, 25, 50, 100, 250, 500, 1000},
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: namespace + "_marketplace_sessions",
		Help: "Marketplace engines currently mounted.",
	})
	chartRender := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "_chart_render_total",
		Help: "Chart widgets built by name and output format.",
	}, []string{"chart", "format"})
	reg.MustRegister(recomputes, resultSize, sessions, chartRender)
	return &MarketplaceMetrics{
		recomputes:  recomputes,
		resultSize:  resultSize,
		sessions:    sessions,
		chartRender: chartRender,
	}
}

// ObserveRecompute counts a recompute triggered by op and records the filtered count.
func (m *MarketplaceMetrics) ObserveRecompute(op string, total int) {
	if m == nil || m.recomputes == nil {
		return
	}
	m.recomputes.WithLabelValues(normalizeLabel(op)).Inc()
	m.resultSize.Observe(float64(total))
}

// SetSessions reports the number of mounted engines.
func (m *MarketplaceMetrics) SetSessions(n int) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// IncChartRender counts one chart build.
func (m *MarketplaceMetrics) IncChartRender(chart, format string) {
	if m == nil || m.chartRender == nil {
		return
	}
	m.chartRender.WithLabelValues(normalizeLabel(chart), normalizeLabel(format)).Inc()
}
