package geometry

import "github.com/paulmach/orb"

// Centroid returns the area-weighted centroid of a ring whose vertices are
// already ordered. It reports false for an empty ring.
//
// Rings of one or two vertices, and rings whose shoelace area is exactly
// zero, fall back to the arithmetic mean of their vertices.
func Centroid(ring []Vertex) (orb.Point, bool) {
	switch len(ring) {
	case 0:
		return orb.Point{}, false
	case 1, 2:
		return mean(ring), true
	}

	var sumF, sumX, sumY float64
	for i := range ring {
		x1, y1 := ring[i].X, ring[i].Y
		next := ring[(i+1)%len(ring)]
		x2, y2 := next.X, next.Y

		f := x1*y2 - x2*y1
		sumF += f
		sumX += (x1 + x2) * f
		sumY += (y1 + y2) * f
	}

	area := sumF / 2
	if area == 0 {
		return mean(ring), true
	}

	return orb.Point{sumX / (6 * area), sumY / (6 * area)}, true
}

func mean(ring []Vertex) orb.Point {
	var x, y float64
	for _, v := range ring {
		x += v.X
		y += v.Y
	}
	n := float64(len(ring))
	return orb.Point{x / n, y / n}
}
