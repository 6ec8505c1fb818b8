package geo

import (
	"github.com/paulmach/orb"

	"github.com/woozymasta/zonemap/internal/pipeline"
)

// Bounds returns the extent of all feature geometries. It reports false
// when there is nothing to bound.
func Bounds(features []pipeline.Feature) (orb.Bound, bool) {
	var (
		bound orb.Bound
		found bool
	)

	for _, f := range features {
		if f.Geometry == nil {
			continue
		}

		b := f.Geometry.Bound()
		if !found {
			bound, found = b, true
			continue
		}
		bound = bound.Union(b)
	}

	return bound, found
}
