package charts

import (
	"bytes"
	"fmt"
	"html/template"
)

var svgTemplate = template.Must(template.New("chart").Funcs(template.FuncMap{
	"num": formatFloat,
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" preserveAspectRatio="none" class="chart chart-{{.Name}}" role="img" aria-label="{{.Title}}">
{{- range .GridLines}}
  <line class="grid" x1="0" x2="100" y1="{{num .}}" y2="{{num .}}"/>
{{- end}}
{{- if .Empty}}
  <text class="empty" x="50" y="50" text-anchor="middle">No data</text>
{{- else if eq .Kind "bars"}}
{{- range .Bars}}
  <rect class="bar" x="{{num .X}}" y="{{num .Y}}" width="{{num .Width}}" height="{{num .Height}}"/>
{{- end}}
{{- else}}
  <path class="area" d="{{.AreaPath}}"/>
  <polyline class="line" fill="none" points="{{.PointsAttr}}"/>
{{- end}}
</svg>
`))

// RenderSVG writes the geometry as a standalone SVG document.
func RenderSVG(g *Geometry) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("nil geometry")
	}
	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, g); err != nil {
		return nil, fmt.Errorf("render %s svg: %w", g.Name, err)
	}
	return buf.Bytes(), nil
}
