package render

import "github.com/lox/wxmap/internal/colormap"

const (
	stationBaseRadius  = 4.0
	stationExtraRadius = 8.0
	stationOpacity     = 0.9
)

// Stations draws one marker per station, sized and colored by value.
type Stations struct {
	Mapper *colormap.Mapper
}

func (s *Stations) Render(f Frame, scale colormap.MetricScale) Output {
	points, _ := f.valid()
	if scale.Coverage {
		points = present(points, colormap.CoveragePresence)
	}
	ps := f.pixelScale()

	out := Output{Primitives: make([]Primitive, 0, len(points))}
	for _, p := range points {
		out.Primitives = append(out.Primitives, Circle{
			Center:    p.Screen,
			Radius:    (stationBaseRadius + s.Mapper.Normalize(scale, p.Value)*stationExtraRadius) * ps,
			Fill:      s.Mapper.ColorFor(scale, p.Value),
			Opacity:   stationOpacity,
			StationID: p.StationID,
		})
	}
	return out
}
