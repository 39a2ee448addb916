package deconflict

import (
	"testing"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

func TestSegments(t *testing.T) {
	waypoints := []types.Point{types.Point2D(0, 0), types.Point2D(1, 0), types.Point2D(2, 0)}
	segments := Segments(waypoints, []float64{0, 5, 10})
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}
	if segments[1].Start != waypoints[1] || segments[1].StartTime != 5 || segments[1].EndTime != 10 {
		t.Errorf("Unexpected second segment: %+v", segments[1])
	}

	if got := Segments(waypoints[:1], []float64{0}); got != nil {
		t.Errorf("Expected no segments for a single waypoint, got %+v", got)
	}
}

func TestCheckSegment(t *testing.T) {
	params := DefaultParams()
	seg := Segment{
		Start:     types.Point2D(0, 0),
		End:       types.Point2D(100, 0),
		StartTime: 0,
		EndTime:   100,
	}

	tests := []struct {
		name       string
		trajectory []types.TrajectorySample
		wantTimes  []float64
	}{
		{
			name:       "no temporal overlap",
			trajectory: []types.TrajectorySample{{Position: types.Point2D(50, 0), Time: 150}},
		},
		{
			name:       "overlap but far away",
			trajectory: []types.TrajectorySample{{Position: types.Point2D(50, 40), Time: 50}},
		},
		{
			name: "inclusive bounds",
			trajectory: []types.TrajectorySample{
				{Position: types.Point2D(0, 1), Time: 0},
				{Position: types.Point2D(100, 1), Time: 100},
			},
			wantTimes: []float64{0, 100},
		},
		{
			name: "exactly at threshold is safe",
			trajectory: []types.TrajectorySample{
				{Position: types.Point2D(50, 10), Time: 50},
			},
		},
		{
			name: "only samples within the span",
			trajectory: []types.TrajectorySample{
				{Position: types.Point2D(0, 0), Time: -10},
				{Position: types.Point2D(20, 2), Time: 20},
				{Position: types.Point2D(30, 30), Time: 30},
				{Position: types.Point2D(80, -3), Time: 80},
				{Position: types.Point2D(100, 0), Time: 120},
			},
			wantTimes: []float64{20, 80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := params.CheckSegment(seg, tt.trajectory, "drone", types.Dim2D)
			if len(conflicts) != len(tt.wantTimes) {
				t.Fatalf("Expected %d conflicts, got %d: %+v", len(tt.wantTimes), len(conflicts), conflicts)
			}
			for i, c := range conflicts {
				if c.Time != tt.wantTimes[i] {
					t.Errorf("conflict[%d].Time = %v, want %v", i, c.Time, tt.wantTimes[i])
				}
				if c.Distance >= params.MinSafeDistance2D {
					t.Errorf("conflict[%d] distance %v not below threshold", i, c.Distance)
				}
				if c.MissionID != "drone" {
					t.Errorf("conflict[%d] mission id = %q", i, c.MissionID)
				}
			}
		})
	}
}

func TestCheckSegment_Details(t *testing.T) {
	params := DefaultParams()
	seg := Segment{
		Start:     types.Point2D(0, 0),
		End:       types.Point2D(20, 20),
		StartTime: 0,
		EndTime:   100.0 / 3,
	}
	trajectory := []types.TrajectorySample{{Position: types.Point2D(10, 10), Time: 10}}

	conflicts := params.CheckSegment(seg, trajectory, "drone_5", types.Dim2D)
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if !almostEqual(c.Location.Primary.X, 6) || !almostEqual(c.Location.Primary.Y, 6) {
		t.Errorf("Primary position = %+v, want [6 6]", c.Location.Primary)
	}
	if c.Location.Other != types.Point2D(10, 10) {
		t.Errorf("Other position = %+v, want [10 10]", c.Location.Other)
	}
	if !almostEqual(c.Distance, 4*1.4142135623730951) {
		t.Errorf("Distance = %v, want ~5.657", c.Distance)
	}
	if c.Severity != types.SeverityHigh {
		t.Errorf("Severity = %v, want high", c.Severity)
	}
}

func TestCheckSegment_ThresholdByDimension(t *testing.T) {
	params := DefaultParams()
	params.MinSafeDistance2D = 5
	params.MinSafeDistance3D = 20

	seg := Segment{Start: types.Point3D(0, 0, 0), End: types.Point3D(0, 0, 0), StartTime: 0, EndTime: 10}
	trajectory := []types.TrajectorySample{{Position: types.Point3D(10, 0, 0), Time: 5}}

	if got := params.CheckSegment(seg, trajectory, "a", types.Dim2D); len(got) != 0 {
		t.Errorf("Expected no conflict against the 2D threshold, got %d", len(got))
	}
	if got := params.CheckSegment(seg, trajectory, "a", types.Dim3D); len(got) != 1 {
		t.Errorf("Expected a conflict against the 3D threshold, got %d", len(got))
	}
}

func TestCheckSegment_ZeroFillSeparatesAltitude(t *testing.T) {
	seg := Segment{Start: types.Point2D(0, 0), End: types.Point2D(10, 0), StartTime: 0, EndTime: 10}
	trajectory := []types.TrajectorySample{{Position: types.Point3D(5, 0, 50), Time: 5}}

	truncate := DefaultParams()
	if got := truncate.CheckSegment(seg, trajectory, "a", types.Dim2D); len(got) != 1 {
		t.Errorf("Truncate policy should report the projected conflict, got %d", len(got))
	}

	zeroFill := DefaultParams()
	zeroFill.DimensionPolicy = PolicyZeroFill
	if got := zeroFill.CheckSegment(seg, trajectory, "a", types.Dim2D); len(got) != 0 {
		t.Errorf("Zero-fill policy should see the altitude separation, got %d", len(got))
	}
}
