// Package geometry holds the planar polygon algorithms used to prepare
// zone and parcel rings for rendering.
package geometry

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ErrDuplicateSequence is returned when two vertices of one ring share a sequence number.
var ErrDuplicateSequence = errors.New("duplicate vertex sequence")

// Vertex is one stored ring vertex in planar coordinates.
type Vertex struct {
	Sequence int     `json:"sequence" yaml:"sequence"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
}

// Point returns the vertex position.
func (v Vertex) Point() orb.Point {
	return orb.Point{v.X, v.Y}
}

// Ordered returns a copy of ring sorted by sequence. The input is not modified.
func Ordered(ring []Vertex) ([]Vertex, error) {
	out := slices.Clone(ring)
	slices.SortStableFunc(out, func(a, b Vertex) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})

	for i := 1; i < len(out); i++ {
		if out[i].Sequence == out[i-1].Sequence {
			return nil, errors.Wrapf(ErrDuplicateSequence, "sequence %d", out[i].Sequence)
		}
	}

	return out, nil
}
