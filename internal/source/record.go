// Package source reads entity records from files and PostgreSQL.
package source

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/woozymasta/zonemap/internal/geometry"
	"github.com/woozymasta/zonemap/internal/pipeline"
)

// ErrInvalidRecord marks records with half a coordinate pair and duplicate
// entity ids.
var ErrInvalidRecord = errors.New("invalid record")

// Record is the storage shape of one zone or parcel.
type Record struct {
	ID         any               `json:"id" yaml:"id"`
	Vertices   []geometry.Vertex `json:"vertices,omitempty" yaml:"vertices,omitempty"`
	X          *float64          `json:"x,omitempty" yaml:"x,omitempty"`
	Y          *float64          `json:"y,omitempty" yaml:"y,omitempty"`
	Longitude  *float64          `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Latitude   *float64          `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Attributes map[string]any    `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Entity converts the record for the pipeline. A malformed record is kept
// with Entity.Err set, so the pipeline counts it without dropping its
// siblings.
func (r Record) Entity() pipeline.Entity {
	e := pipeline.Entity{
		ID:         formatID(r.ID),
		Ring:       r.Vertices,
		Attributes: r.Attributes,
	}
	e.Planar, e.Geographic, e.Err = positions(r.X, r.Y, r.Longitude, r.Latitude)
	return e
}

func positions(x, y, lon, lat *float64) (planar, geographic *orb.Point, err error) {
	if planar, err = pair(x, y); err != nil {
		return nil, nil, errors.WithMessage(err, "x/y")
	}
	if geographic, err = pair(lon, lat); err != nil {
		return nil, nil, errors.WithMessage(err, "longitude/latitude")
	}
	return planar, geographic, nil
}

func pair(a, b *float64) (*orb.Point, error) {
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a == nil || b == nil:
		return nil, errors.WithMessage(ErrInvalidRecord, "incomplete coordinate pair")
	}
	return &orb.Point{*a, *b}, nil
}

func formatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case float64:
		// JSON numbers decode as float64
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
