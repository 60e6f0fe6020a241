package charts

import (
	"slices"
	"time"

	"github.com/harvestlink/agrimarket/internal/listings"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
)

const (
	WidgetPriceHistory      = "price_history"
	WidgetTradingVolume     = "trading_volume"
	WidgetTrustDistribution = "trust_distribution"
	WidgetImpact            = "impact"

	gridLineCount = 5
	barFill       = 0.7
)

// Widgets lists the chart names Build understands.
func Widgets() []string {
	return []string{WidgetPriceHistory, WidgetTradingVolume, WidgetTrustDistribution, WidgetImpact}
}

// Params are the inputs a widget may use.
type Params struct {
	Range    SeriesRange
	CropType string
	End      time.Time
	Listings []listings.Listing
}

// Geometry is the render-ready output of a widget.
type Geometry struct {
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	Unit       string    `json:"unit,omitempty"`
	Range      string    `json:"range,omitempty"`
	Empty      bool      `json:"empty"`
	Domain     Domain    `json:"domain"`
	GridLines  []float64 `json:"grid_lines"`
	Labels     []string  `json:"labels"`
	Values     []float64 `json:"values"`
	Points     []Point   `json:"points,omitempty"`
	PointsAttr string    `json:"points_attr,omitempty"`
	AreaPath   string    `json:"area_path,omitempty"`
	Bars       []Rect    `json:"bars,omitempty"`
}

// Build computes the geometry for the named widget. Empty sample sets come
// back as Empty geometry without touching the mapper.
func Build(name string, params Params) (*Geometry, error) {
	if params.End.IsZero() {
		params.End = time.Now().UTC()
	}
	if params.Range == "" {
		params.Range = DefaultRange
	}
	if params.Range.Days() == 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid range %q", params.Range)
	}

	switch name {
	case WidgetPriceHistory:
		crop := params.CropType
		if crop == "" || crop == listings.AllValues {
			crop = "coffee"
		}
		samples := MockPriceHistory(crop, params.Range, params.End)
		g := newGeometry(name, "Price history: "+crop, "line", "token", samples)
		g.Range = string(params.Range)
		if !g.Empty {
			g.Domain = ComputeDomain(g.Values)
			g.lineAndArea()
		}
		return g, nil

	case WidgetTradingVolume:
		samples := MockTradingVolume(params.Range, params.End)
		g := newGeometry(name, "Trading volume", "bars", "tokens", samples)
		g.Range = string(params.Range)
		if !g.Empty {
			g.Domain = ComputeDomain(g.Values)
			g.bars()
		}
		return g, nil

	case WidgetTrustDistribution:
		samples := TrustDistribution(params.Listings)
		g := newGeometry(name, "Trust score distribution", "bars", "listings", samples)
		g.Empty = len(params.Listings) == 0
		if !g.Empty {
			g.Domain = Domain{Min: 0, Max: max(slices.Max(g.Values), 1)}
			g.bars()
		}
		return g, nil

	case WidgetImpact:
		samples := MockImpact(params.End)
		g := newGeometry(name, "Farmers reached", "line", "%", samples)
		if !g.Empty {
			g.Domain = PercentDomain()
			g.lineAndArea()
		}
		return g, nil
	}

	return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "chart %q not found", name)
}

func newGeometry(name, title, kind, unit string, samples []Sample) *Geometry {
	labels := make([]string, len(samples))
	for i, s := range samples {
		labels[i] = s.Label
	}
	return &Geometry{
		Name:      name,
		Title:     title,
		Kind:      kind,
		Unit:      unit,
		Empty:     len(samples) == 0,
		GridLines: GridLines(gridLineCount),
		Labels:    labels,
		Values:    Values(samples),
	}
}

func (g *Geometry) lineAndArea() {
	g.Points = MapLine(g.Values, g.Domain.Min, g.Domain.Max)
	g.PointsAttr = PointsAttr(g.Points)
	g.AreaPath = MapArea(g.Values, g.Domain.Min, g.Domain.Max).D()
}

func (g *Geometry) bars() {
	width := Viewport / float64(len(g.Values)) * barFill
	g.Bars = MapBars(g.Values, g.Domain.Min, g.Domain.Max, width)
}
