package deconflict

import (
	"math"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// Distance returns the Euclidean distance between a and b over the coordinates
// both points share. A 3D point compared with a 2D point is projected onto
// the ground plane.
func Distance(a, b types.Point) float64 {
	return DistanceWithPolicy(a, b, PolicyTruncate)
}

// DistanceWithPolicy is Distance with an explicit mixed-dimension policy.
func DistanceWithPolicy(a, b types.Point, policy DimensionPolicy) float64 {
	dim := min(a.Dim, b.Dim)
	if policy == PolicyZeroFill {
		dim = max(a.Dim, b.Dim)
	}

	var sum float64
	for i := 0; i < int(dim); i++ {
		d := a.Coord(i) - b.Coord(i)
		sum += d * d
	}
	return math.Sqrt(sum)
}
