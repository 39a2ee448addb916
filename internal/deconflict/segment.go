package deconflict

import (
	"sort"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// Segment is the straight, time-bounded leg between two primary waypoints.
type Segment struct {
	Start     types.Point
	End       types.Point
	StartTime float64
	EndTime   float64
}

// Segments pairs consecutive waypoints with their estimated times.
func Segments(waypoints []types.Point, timeline []float64) []Segment {
	if len(waypoints) < 2 {
		return nil
	}
	segments := make([]Segment, 0, len(waypoints)-1)
	for i := 0; i < len(waypoints)-1; i++ {
		segments = append(segments, Segment{
			Start:     waypoints[i],
			End:       waypoints[i+1],
			StartTime: timeline[i],
			EndTime:   timeline[i+1],
		})
	}
	return segments
}

// CheckSegment compares one primary segment against a time-ordered other
// trajectory. Only samples whose time falls inside the segment's time span
// (inclusive) are considered; for each, the primary position at that instant
// is interpolated and a conflict is recorded when the separation is below
// the threshold for dim.
func (p Params) CheckSegment(seg Segment, trajectory []types.TrajectorySample, missionID string, dim types.Dimension) []types.ConflictRecord {
	threshold := p.Threshold(dim)

	first := sort.Search(len(trajectory), func(i int) bool {
		return trajectory[i].Time >= seg.StartTime
	})

	var conflicts []types.ConflictRecord
	for _, sample := range trajectory[first:] {
		if sample.Time > seg.EndTime {
			break
		}

		primary := InterpolatePosition(seg.Start, seg.End, seg.StartTime, seg.EndTime, sample.Time)
		d := DistanceWithPolicy(primary, sample.Position, p.DimensionPolicy)
		if d >= threshold {
			continue
		}

		conflicts = append(conflicts, types.ConflictRecord{
			Location: types.ConflictLocation{
				Primary: primary,
				Other:   sample.Position,
			},
			Time:      sample.Time,
			Distance:  d,
			MissionID: missionID,
			Severity:  p.Severity.Classify(d, threshold),
		})
	}
	return conflicts
}
