package pipeline

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/woozymasta/zonemap/internal/geometry"
	"github.com/woozymasta/zonemap/internal/projection"
)

// Convert builds the feature for a single entity.
//
// A ring with at least one vertex wins over a planar point, which wins over
// a legacy geographic point. Entities with none of them fail with
// ErrNoPosition. Projection failures wrap projection.ErrOutOfDomain. An
// entity read with a defect fails with its Err.
func Convert(e Entity, proj *projection.Projector, tolerance float64) (Feature, error) {
	if e.Err != nil {
		return Feature{}, errors.Wrapf(e.Err, "entity %q", e.ID)
	}

	f := Feature{
		ID:         e.ID,
		Attributes: e.Attributes,
	}

	switch {
	case len(e.Ring) > 0:
		geom, centroid, err := convertRing(e.Ring, proj, tolerance)
		if err != nil {
			return Feature{}, errors.Wrapf(err, "entity %q", e.ID)
		}
		f.Source = SourceRing
		f.Geometry = geom
		f.Centroid = centroid

	case e.Planar != nil:
		ll, err := proj.ToGeographic(*e.Planar)
		if err != nil {
			return Feature{}, errors.Wrapf(err, "entity %q", e.ID)
		}
		f.Source = SourcePlanar
		f.Geometry = ll
		f.Centroid = ll

	case e.Geographic != nil:
		ll := *e.Geographic
		if err := projection.CheckGeographic(ll); err != nil {
			return Feature{}, errors.Wrapf(err, "entity %q", e.ID)
		}
		f.Source = SourceGeographic
		f.Geometry = ll
		f.Centroid = ll

	default:
		return Feature{}, errors.Wrapf(ErrNoPosition, "entity %q", e.ID)
	}

	f.OutsideEnvelope = !proj.InEnvelope(f.Centroid)
	return f, nil
}

// convertRing orders and projects a ring. Rings of one or two vertices
// become a point at their centroid.
func convertRing(ring []geometry.Vertex, proj *projection.Projector, tolerance float64) (orb.Geometry, orb.Point, error) {
	ordered, err := geometry.Ordered(ring)
	if err != nil {
		return nil, orb.Point{}, err
	}

	projected := make([]orb.Point, len(ordered))
	for i, v := range ordered {
		ll, err := proj.ToGeographic(v.Point())
		if err != nil {
			return nil, orb.Point{}, errors.Wrapf(err, "vertex %d", v.Sequence)
		}
		projected[i] = ll
	}

	planarCentroid, _ := geometry.Centroid(ordered)
	centroid, err := proj.ToGeographic(planarCentroid)
	if err != nil {
		return nil, orb.Point{}, errors.Wrap(err, "centroid")
	}

	if len(projected) < 3 {
		return centroid, centroid, nil
	}

	simplified := geometry.Simplify(projected, tolerance)
	if len(simplified) < 3 {
		simplified = projected
	}

	return orb.Polygon{orb.Ring(simplified)}, centroid, nil
}
