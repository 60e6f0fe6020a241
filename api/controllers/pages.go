package controllers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/harvestlink/agrimarket/api/middleware"
	"github.com/harvestlink/agrimarket/api/responses"
	"github.com/harvestlink/agrimarket/internal/charts"
	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/internal/site"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

// Pages groups what the HTML handlers need.
type Pages struct {
	Renderer *site.Renderer
	Engines  EngineProvider
	Metrics  ChartMetrics
	Logger   *logger.Logger
}

func (p Pages) render(w http.ResponseWriter, r *http.Request, status int, data site.PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf bytes.Buffer
	if err := p.Renderer.Render(&buf, data); err != nil {
		p.Logger.Error(r.Context(), "page render failed", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// chart renders a widget to inline SVG; failures degrade to no chart.
func (p Pages) chart(ctx context.Context, name string, params charts.Params) template.HTML {
	g, err := charts.Build(name, params)
	if err != nil {
		p.Logger.Warn(p.Logger.WithField(ctx, "chart", name), "chart build failed")
		return ""
	}
	svg, err := charts.RenderSVG(g)
	if err != nil {
		p.Logger.Warn(p.Logger.WithField(ctx, "chart", name), "chart render failed")
		return ""
	}
	countChart(p.Metrics, name, "svg")
	return template.HTML(svg)
}

func (p Pages) snapshot(ctx context.Context) ([]listings.Listing, []site.Alert) {
	items, err := p.Engines.Snapshot(ctx)
	if err != nil {
		p.Logger.Error(ctx, "listing snapshot unavailable", err)
		return nil, []site.Alert{site.NewAlert("warning", "Live listings are temporarily unavailable.")}
	}
	return items, nil
}

func (p Pages) Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		items, alerts := p.snapshot(ctx)
		p.render(w, r, http.StatusOK, site.PageData{
			Page:    site.PageHome,
			Title:   "Home",
			Alerts:  alerts,
			Content: site.NewHomeContent(items),
			Charts: map[string]template.HTML{
				charts.WidgetPriceHistory: p.chart(ctx, charts.WidgetPriceHistory, chartParams("coffee", items)),
			},
		})
	}
}

func (p Pages) About() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.render(w, r, http.StatusOK, site.PageData{Page: site.PageAbout, Title: "About"})
	}
}

func (p Pages) Impact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		items, alerts := p.snapshot(ctx)
		p.render(w, r, http.StatusOK, site.PageData{
			Page:    site.PageImpact,
			Title:   "Impact",
			Alerts:  alerts,
			Content: site.NewImpactContent(items),
			Charts: map[string]template.HTML{
				charts.WidgetImpact:            p.chart(ctx, charts.WidgetImpact, chartParams("", items)),
				charts.WidgetTrustDistribution: p.chart(ctx, charts.WidgetTrustDistribution, chartParams("", items)),
			},
		})
	}
}

func (p Pages) Contact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.render(w, r, http.StatusOK, site.PageData{
			Page:    site.PageContact,
			Title:   "Contact",
			Content: site.ContactForm{Sent: r.URL.Query().Get("sent") == "1"},
		})
	}
}

// Marketplace applies the query string to the session engine and renders
// the current page of results.
func (p Pages) Marketplace() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		engine, err := p.Engines.Mount(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			p.Logger.Error(ctx, "mount marketplace engine", err)
			p.render(w, r, http.StatusServiceUnavailable, site.PageData{
				Page:    site.PageMarketplace,
				Title:   "Marketplace",
				Alerts:  []site.Alert{site.NewAlert("error", "The marketplace is temporarily unavailable.")},
				Content: site.NewMarketplaceView(r.URL.Path, listings.NewEngine(nil).Snapshot(), listings.Facets(nil), r.URL.Query()),
			})
			return
		}

		var alerts []site.Alert
		if err := applyMarketplaceQuery(r, engine); err != nil {
			alerts = append(alerts, site.NewAlert("error", responses.PublicMessage(err)))
		}
		p.render(w, r, http.StatusOK, site.PageData{
			Page:    site.PageMarketplace,
			Title:   "Marketplace",
			Alerts:  alerts,
			Content: site.NewMarketplaceView(r.URL.Path, engine.Snapshot(), listings.Facets(engine.Listings()), r.URL.Query()),
		})
	}
}

// applyMarketplaceQuery mirrors the sidebar form onto the engine. Only the
// parameters present are applied; the page goes last because filter changes
// reset it.
func applyMarketplaceQuery(r *http.Request, engine *listings.Engine) error {
	if r.URL.Query().Get("reset") == "1" {
		engine.ResetFilters()
		return nil
	}
	q, err := parseListingQuery(r)
	if err != nil {
		return err
	}
	state := engine.State()
	f := state.Filters
	set := func(key string, field listings.FilterField, next, current string) error {
		if !q.has(key) || next == current {
			return nil
		}
		return engine.UpdateFilter(field, next)
	}
	if err := set("crop", listings.FieldCropType, q.filters.CropType, f.CropType); err != nil {
		return err
	}
	if err := set("location", listings.FieldLocation, q.filters.Location, f.Location); err != nil {
		return err
	}
	if err := set("token", listings.FieldTokenType, q.filters.TokenType, f.TokenType); err != nil {
		return err
	}
	if err := set("sort", listings.FieldSortBy, string(q.filters.SortBy), string(f.SortBy)); err != nil {
		return err
	}
	if q.has("trust") && q.filters.TrustScore != f.TrustScore {
		if err := engine.UpdateFilter(listings.FieldTrustScore, r.URL.Query().Get("trust")); err != nil {
			return err
		}
	}
	if (q.has("min_price") || q.has("max_price")) && q.filters.PriceRange != f.PriceRange {
		engine.UpdatePriceRange(q.filters.PriceRange.Min, q.filters.PriceRange.Max)
	}
	if q.has("q") && q.search != state.SearchQuery {
		if q.search == "" {
			engine.ClearSearch()
		} else {
			engine.Search(q.search)
		}
	}
	if q.has("page") {
		engine.GoToPage(q.page)
	}
	return nil
}
