package geometry

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Simplify reduces a point sequence with Ramer-Douglas-Peucker.
//
// tolerance is in the unit of the points (degrees for projected rings) and
// is compared squared against the squared distance to the chord. The first
// and last points are always kept; on equal distances the lowest index wins.
// Sequences of three points or fewer are returned unchanged. The result is a
// new slice.
func Simplify(points []orb.Point, tolerance float64) []orb.Point {
	if len(points) <= 3 {
		return slices.Clone(points)
	}

	sqTolerance := 0.0
	if tolerance > 0 {
		sqTolerance = tolerance * tolerance
	}

	last := len(points) - 1
	keep := make([]bool, len(points))
	keep[0], keep[last] = true, true

	// explicit stack instead of recursion, rings can have many thousands of vertices
	stack := [][2]int{{0, last}}
	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		first, end := seg[0], seg[1]

		maxSqDist := sqTolerance
		index := -1
		for i := first + 1; i < end; i++ {
			d := planar.DistanceFromSegmentSquared(points[first], points[end], points[i])
			if d > maxSqDist {
				index = i
				maxSqDist = d
			}
		}

		if index < 0 {
			continue
		}
		keep[index] = true
		if index-first > 1 {
			stack = append(stack, [2]int{first, index})
		}
		if end-index > 1 {
			stack = append(stack, [2]int{index, end})
		}
	}

	out := make([]orb.Point, 0, len(points))
	for i, p := range points {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}
