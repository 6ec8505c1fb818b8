// Package geo encodes pipeline features as GeoJSON.
package geo

import (
	"maps"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/woozymasta/zonemap/internal/pipeline"
)

// EncodeOptions control the GeoJSON rendering of features.
type EncodeOptions struct {
	// CentroidProperty, when set, stores the feature centroid as [lon, lat]
	// under this property name.
	CentroidProperty string

	// SourceProperty, when set, stores the position source
	// (ring, planar or geographic) under this property name.
	SourceProperty string

	// CloseRings repeats the first polygon vertex at the end of the ring,
	// as most renderers expect.
	CloseRings bool
}

// Encode builds a feature collection with a bbox covering every feature.
// Feature attributes are copied, never modified.
func Encode(features []pipeline.Feature, opts EncodeOptions) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(features))

	for _, f := range features {
		gf := geojson.NewFeature(renderGeometry(f.Geometry, opts.CloseRings))
		if f.ID != "" {
			gf.ID = f.ID
		}

		maps.Copy(gf.Properties, f.Attributes)
		if opts.CentroidProperty != "" {
			gf.Properties[opts.CentroidProperty] = []float64{f.Centroid.Lon(), f.Centroid.Lat()}
		}
		if opts.SourceProperty != "" {
			gf.Properties[opts.SourceProperty] = string(f.Source)
		}

		fc.Append(gf)
	}

	if bound, ok := Bounds(features); ok {
		fc.BBox = geojson.NewBBox(bound)
	}

	return fc
}

func renderGeometry(g orb.Geometry, closeRings bool) orb.Geometry {
	poly, ok := g.(orb.Polygon)
	if !ok || !closeRings {
		return g
	}

	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = CloseRing(r)
	}
	return out
}

// CloseRing returns r with its first vertex repeated at the end.
// Rings that are already closed, or too short to be closed, are copied as is.
func CloseRing(r orb.Ring) orb.Ring {
	out := slices.Clone(r)
	if len(out) < 3 || out[0] == out[len(out)-1] {
		return out
	}
	return append(out, out[0])
}
