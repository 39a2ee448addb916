package deconflict

import (
	"math"
	"testing"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b types.Point
		want float64
	}{
		{name: "2D", a: types.Point2D(0, 0), b: types.Point2D(3, 4), want: 5},
		{name: "3D", a: types.Point3D(1, 2, 3), b: types.Point3D(3, 5, 9), want: 7},
		{name: "coincident", a: types.Point3D(1, 1, 1), b: types.Point3D(1, 1, 1), want: 0},
		{name: "2D against 3D ignores altitude", a: types.Point2D(0, 0), b: types.Point3D(3, 4, 100), want: 5},
		{name: "3D against 2D ignores altitude", a: types.Point3D(3, 4, 100), b: types.Point2D(0, 0), want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if !almostEqual(got, tt.want) {
				t.Errorf("Distance() = %v, want %v", got, tt.want)
			}
			if back := Distance(tt.b, tt.a); !almostEqual(back, got) {
				t.Errorf("Distance() not symmetric: %v vs %v", got, back)
			}
			if got < 0 {
				t.Errorf("Distance() returned negative value %v", got)
			}
		})
	}
}

func TestDistanceWithPolicy_ZeroFill(t *testing.T) {
	a := types.Point2D(0, 0)
	b := types.Point3D(0, 0, 30)

	if got := DistanceWithPolicy(a, b, PolicyTruncate); got != 0 {
		t.Errorf("Truncate policy should ignore altitude, got %v", got)
	}
	if got := DistanceWithPolicy(a, b, PolicyZeroFill); !almostEqual(got, 30) {
		t.Errorf("Zero-fill policy should treat missing altitude as 0, got %v", got)
	}
}

func TestInterpolatePosition(t *testing.T) {
	start := types.Point2D(0, 0)
	end := types.Point2D(20, 20)

	tests := []struct {
		name   string
		target float64
		want   types.Point
	}{
		{name: "at start", target: 0, want: start},
		{name: "at end", target: 10, want: end},
		{name: "midpoint", target: 5, want: types.Point2D(10, 10)},
		{name: "before start clamps", target: -5, want: start},
		{name: "after end clamps", target: 50, want: end},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpolatePosition(start, end, 0, 10, tt.target)
			if !almostEqual(got.X, tt.want.X) || !almostEqual(got.Y, tt.want.Y) || got.Dim != tt.want.Dim {
				t.Errorf("InterpolatePosition() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInterpolatePosition_ExactEndpoints(t *testing.T) {
	start := types.Point3D(0.1, 0.2, 0.3)
	end := types.Point3D(0.7, 1.1, 2.9)

	if got := InterpolatePosition(start, end, 0.1, 0.3, 0.1); got != start {
		t.Errorf("Expected exact start point, got %+v", got)
	}
	if got := InterpolatePosition(start, end, 0.1, 0.3, 0.3); got != end {
		t.Errorf("Expected exact end point, got %+v", got)
	}
}

func TestInterpolatePosition_ZeroDuration(t *testing.T) {
	start := types.Point2D(1, 1)
	end := types.Point2D(9, 9)

	got := InterpolatePosition(start, end, 5, 5, 5)
	if got != start {
		t.Errorf("Zero-duration segment should yield start point, got %+v", got)
	}
}

func TestInterpolatePosition_InvertedSpan(t *testing.T) {
	start := types.Point2D(1, 1)
	end := types.Point2D(9, 9)

	got := InterpolatePosition(start, end, 10, 0, 5)
	if got != start {
		t.Errorf("Inverted segment should yield start point, got %+v", got)
	}
}

func TestInterpolatePosition_MixedDimensions(t *testing.T) {
	got := InterpolatePosition(types.Point3D(0, 0, 10), types.Point2D(10, 0), 0, 10, 5)
	if got.Dim != types.Dim2D {
		t.Fatalf("Expected 2D result, got %v", got.Dim)
	}
	if !almostEqual(got.X, 5) || got.Y != 0 {
		t.Errorf("Unexpected position %+v", got)
	}
}

func TestInterpolatePosition_Monotonic(t *testing.T) {
	start := types.Point3D(0, 10, -5)
	end := types.Point3D(10, 0, 5)

	prev := InterpolatePosition(start, end, 0, 100, 0)
	for target := 1.0; target <= 100; target++ {
		cur := InterpolatePosition(start, end, 0, 100, target)
		if cur.X < prev.X || cur.Y > prev.Y || cur.Z < prev.Z {
			t.Fatalf("Interpolation not monotonic at t=%v: %+v after %+v", target, cur, prev)
		}
		prev = cur
	}
}
