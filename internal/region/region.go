// Package region provides the clipping outline for rendered maps.
package region

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

//go:embed finland.geojson
var finlandJSON []byte

var ErrNoPolygon = errors.New("no polygon geometry")

var finland = mustParse(finlandJSON)

func mustParse(data []byte) orb.Polygon {
	p, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("region: embedded outline: %v", err))
	}
	return p
}

// Finland returns a copy of the embedded mainland outline in (lon, lat).
func Finland() orb.Polygon {
	return finland.Clone()
}

// Parse reads a GeoJSON geometry, feature or feature collection and
// returns its largest polygon.
func Parse(data []byte) (orb.Polygon, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var best orb.Polygon
	var bestArea float64
	consider := func(p orb.Polygon) {
		if len(p) == 0 || len(p[0]) < 4 {
			return
		}
		if a := planar.Area(p); best == nil || a > bestArea {
			best, bestArea = p, a
		}
	}
	for _, g := range geoms {
		switch g := g.(type) {
		case orb.Polygon:
			consider(g)
		case orb.MultiPolygon:
			for _, p := range g {
				consider(p)
			}
		}
	}
	if best == nil {
		return nil, ErrNoPolygon
	}
	return best, nil
}

// LoadFile parses the GeoJSON file at path.
func LoadFile(path string) (orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region: %w", err)
	}
	return Parse(data)
}

// Project maps every vertex of p through project.
func Project(p orb.Polygon, project func(orb.Point) orb.Point) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		r := make(orb.Ring, len(ring))
		for j, pt := range ring {
			r[j] = project(pt)
		}
		out[i] = r
	}
	return out
}
