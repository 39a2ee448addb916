package deconflict

import "github.com/saviobatista/uav-deconfliction/internal/types"

// InterpolatePosition returns the position at target along the straight
// segment from start (at startTime) to end (at endTime). target is clamped to
// the segment's time span; a zero-duration segment yields start. The result
// has the smaller dimensionality of the two endpoints.
func InterpolatePosition(start, end types.Point, startTime, endTime, target float64) types.Point {
	target = max(startTime, min(endTime, target))

	var ratio float64
	if span := endTime - startTime; span != 0 {
		ratio = (target - startTime) / span
	}

	dim := min(start.Dim, end.Dim)
	if ratio >= 1 {
		return project(end, dim)
	}
	if ratio <= 0 {
		return project(start, dim)
	}

	var coords [3]float64
	for i := 0; i < int(dim); i++ {
		coords[i] = start.Coord(i) + ratio*(end.Coord(i)-start.Coord(i))
	}
	return types.Point{X: coords[0], Y: coords[1], Z: coords[2], Dim: dim}
}

// project drops coordinates above dim.
func project(p types.Point, dim types.Dimension) types.Point {
	if dim == types.Dim2D {
		return types.Point2D(p.X, p.Y)
	}
	return p
}
