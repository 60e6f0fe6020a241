package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/harvestlink/agrimarket/api/responses"
	"github.com/harvestlink/agrimarket/internal/charts"
	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

const svgSuffix = ".svg"

// Chart serves widget geometry as JSON, or as SVG when the name ends in .svg.
func Chart(source SnapshotProvider, chartMetrics ChartMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := chi.URLParam(r, "name")
		asSVG := strings.HasSuffix(name, svgSuffix)
		name = strings.TrimSuffix(name, svgSuffix)

		rng, err := charts.ParseRange(r.URL.Query().Get("range"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params := charts.Params{
			Range:    rng,
			CropType: r.URL.Query().Get("crop"),
			End:      time.Now().UTC(),
		}
		if name == charts.WidgetTrustDistribution {
			items, err := source.Snapshot(ctx)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			params.Listings = items
		}

		geometry, err := charts.Build(name, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if !asSVG {
			countChart(chartMetrics, name, "json")
			responses.WriteSuccess(w, geometry)
			return
		}
		svg, err := charts.RenderSVG(geometry)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		countChart(chartMetrics, name, "svg")
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(svg)
	}
}

// chartParams builds widget inputs for pages that embed charts.
func chartParams(crop string, items []listings.Listing) charts.Params {
	return charts.Params{Range: charts.DefaultRange, CropType: crop, End: time.Now().UTC(), Listings: items}
}

func countChart(m ChartMetrics, name, format string) {
	if m == nil {
		return
	}
	m.IncChartRender(name, format)
}
