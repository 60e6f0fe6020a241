// Package charts turns numeric samples into plot geometry in a fixed
// [0,100]x[0,100] viewport where y grows downward.
package charts

import (
	"strconv"
	"strings"
)

// Viewport is the side length of the normalized plotting square.
const Viewport = 100.0

// Point is a mapped coordinate pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a bar anchored at the bottom of the viewport.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Domain is the value range mapped onto the viewport height.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ClosedPath is a polygon outline, implicitly closed back to its first point.
type ClosedPath struct {
	Points []Point `json:"points"`
}

// PercentDomain is the fixed domain for percentage series.
func PercentDomain() Domain {
	return Domain{Min: 0, Max: 100}
}

// ComputeDomain pads the sample extent by 5% on each side. samples must not be empty.
func ComputeDomain(samples []float64) Domain {
	lo, hi := samples[0], samples[0]
	for _, v := range samples[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return Domain{Min: lo * 0.95, Max: hi * 1.05}
}

// MapLine maps samples onto evenly spaced x positions. A zero-width domain
// is widened to [min-1, min+1]. samples must not be empty.
func MapLine(samples []float64, domainMin, domainMax float64) []Point {
	domainMin, domainMax = widen(domainMin, domainMax)
	n := len(samples)
	points := make([]Point, n)
	for i, v := range samples {
		points[i] = Point{
			X: xAt(i, n),
			Y: Viewport - (v-domainMin)/(domainMax-domainMin)*Viewport,
		}
	}
	return points
}

// MapArea returns the line points followed by the two baseline corners.
func MapArea(samples []float64, domainMin, domainMax float64) ClosedPath {
	line := MapLine(samples, domainMin, domainMax)
	points := make([]Point, 0, len(line)+2)
	points = append(points, line...)
	points = append(points,
		Point{X: line[len(line)-1].X, Y: Viewport},
		Point{X: line[0].X, Y: Viewport},
	)
	return ClosedPath{Points: points}
}

// MapBars returns one bar per sample centered on its line x position.
func MapBars(samples []float64, domainMin, domainMax, barWidth float64) []Rect {
	domainMin, domainMax = widen(domainMin, domainMax)
	n := len(samples)
	rects := make([]Rect, n)
	for i, v := range samples {
		height := (v - domainMin) / (domainMax - domainMin) * Viewport
		rects[i] = Rect{
			X:      xAt(i, n) - barWidth/2,
			Y:      Viewport - height,
			Width:  barWidth,
			Height: height,
		}
	}
	return rects
}

// GridLines returns count evenly spaced y positions from 0 to 100 inclusive.
func GridLines(count int) []float64 {
	switch {
	case count <= 0:
		return []float64{}
	case count == 1:
		return []float64{0}
	}
	step := Viewport / float64(count-1)
	lines := make([]float64, count)
	for i := range lines {
		lines[i] = float64(i) * step
	}
	lines[count-1] = Viewport
	return lines
}

// PointsAttr serializes points as an SVG points attribute ("x,y x,y").
func PointsAttr(points []Point) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatFloat(p.X))
		b.WriteByte(',')
		b.WriteString(formatFloat(p.Y))
	}
	return b.String()
}

// D serializes the path as SVG path data ("M x y L x y ... Z").
func (c ClosedPath) D() string {
	if len(c.Points) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range c.Points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(formatFloat(p.X))
		b.WriteByte(' ')
		b.WriteString(formatFloat(p.Y))
	}
	b.WriteString(" Z")
	return b.String()
}

func xAt(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1) * Viewport
}

func widen(lo, hi float64) (float64, float64) {
	if hi == lo {
		return lo - 1, lo + 1
	}
	return lo, hi
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
