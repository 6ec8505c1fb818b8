// Package pipeline turns stored zone and parcel records into render-ready
// features: it orders rings, projects them to WGS84, derives centroids and
// simplifies polygons, one batch per country.
package pipeline

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/woozymasta/zonemap/internal/geometry"
)

// DefaultTolerance is the simplification tolerance in degrees used when
// nothing else is configured.
const DefaultTolerance = 0.0001

// ErrNoPosition marks an entity without a ring, planar point or geographic
// point. Such entities are filtered, not failed.
var ErrNoPosition = errors.New("entity has no position")

// Entity is one zone or parcel as read from storage.
// Position sources are tried in order: Ring, Planar, Geographic.
type Entity struct {
	ID         string
	Ring       []geometry.Vertex
	Planar     *orb.Point // easting, northing
	Geographic *orb.Point // legacy longitude, latitude
	Attributes map[string]any

	// Err is a defect found while reading the record. Such an entity is
	// counted as invalid without being converted.
	Err error
}

// Source names the position source a feature was built from.
type Source string

const (
	SourceRing       Source = "ring"
	SourcePlanar     Source = "planar"
	SourceGeographic Source = "geographic"
)

// Feature is a render-ready entity in WGS84.
type Feature struct {
	ID       string
	Geometry orb.Geometry // orb.Point or orb.Polygon
	Centroid orb.Point
	Source   Source

	// OutsideEnvelope is set when the centroid falls outside the country's
	// validity envelope. The feature is still emitted.
	OutsideEnvelope bool

	Attributes map[string]any
}

// Batch is a set of entities that share one country.
type Batch struct {
	Country  string
	Entities []Entity

	// Tolerance overrides Options.Tolerance for this batch when set.
	Tolerance *float64
}

// Stats counts what happened to each entity of a batch.
type Stats struct {
	Total           int
	Features        int
	Filtered        int
	OutOfDomain     int
	Invalid         int
	OutsideEnvelope int
}

// Dropped is the number of entities that produced no feature.
func (s Stats) Dropped() int {
	return s.Filtered + s.OutOfDomain + s.Invalid
}

// Result is the outcome of one batch. Features keep the input order.
type Result struct {
	Country    string
	Projection string // code of the parameter set actually used
	FellBack   bool
	Features   []Feature
	Stats      Stats
}
