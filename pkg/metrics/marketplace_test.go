package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMarketplaceMetricsRecordsRecomputeAndCharts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMarketplaceMetrics(reg)
	m.ObserveRecompute("update_filter", 7)
	m.ObserveRecompute("update_filter", 3)
	m.IncChartRender("price_history", "svg")
	m.SetSessions(4)

	families := gatherByName(t, reg)
	if got := sampleValue(families["agm_marketplace_recompute_total"], map[string]string{"op": "update_filter"}); got != 2 {
		t.Fatalf("expected recompute=2, got %f", got)
	}
	if got := sampleValue(families["agm_chart_render_total"], map[string]string{"chart": "price_history"}); got != 1 {
		t.Fatalf("expected chart render=1, got %f", got)
	}
	if got := sampleValue(families["agm_marketplace_sessions"], nil); got != 4 {
		t.Fatalf("expected sessions gauge 4, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *MarketplaceMetrics
	m.ObserveRecompute("search", 1)
	m.IncChartRender("impact", "json")
	m.SetSessions(1)

	var h *HTTPMetrics
	h.Observe("GET", "/", 200, time.Millisecond)

	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
}

func TestHTTPMetricsUsesRouteLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)
	h.Observe("GET", "/api/v1/charts/{name}", 200, 20*time.Millisecond)

	families := gatherByName(t, reg)
	for _, metric := range families["agm_http_request_duration_seconds"].GetMetric() {
		if labelsMatch(metric, map[string]string{"route": "/api/v1/charts/{name}"}) {
			if metric.GetHistogram().GetSampleSum() <= 0 {
				t.Fatalf("expected positive duration sum")
			}
			return
		}
	}
	t.Fatal("chart route missing from duration histogram")
}
