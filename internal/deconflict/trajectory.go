package deconflict

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// MaxResampledSamples caps how many samples Resample may add to one
// trajectory.
const MaxResampledSamples = 1 << 20

// InterpolateTrajectory converts an other mission's waypoints into samples
// ordered by time. Waypoints sharing a timestamp keep their input order.
func InterpolateTrajectory(waypoints []types.TimedWaypoint) []types.TrajectorySample {
	samples := make([]types.TrajectorySample, len(waypoints))
	for i, w := range waypoints {
		samples[i] = types.TrajectorySample{Position: w.Position, Time: w.Timestamp}
	}
	slices.SortStableFunc(samples, func(a, b types.TrajectorySample) int {
		return cmp.Compare(a.Time, b.Time)
	})
	return samples
}

// Resample inserts a sample every interval seconds between consecutive
// samples, positioned by linear interpolation. Original samples are kept.
// A non-positive interval returns samples unchanged. ErrSampleLimit is
// returned when more than MaxResampledSamples would be added.
func Resample(samples []types.TrajectorySample, interval float64) ([]types.TrajectorySample, error) {
	if interval <= 0 || len(samples) < 2 {
		return samples, nil
	}

	added := 0.0
	for i := 0; i < len(samples)-1; i++ {
		added += math.Floor((samples[i+1].Time - samples[i].Time) / interval)
	}
	if added > MaxResampledSamples {
		return nil, fmt.Errorf("%w: %.0f samples at %g s intervals", ErrSampleLimit, added, interval)
	}

	out := make([]types.TrajectorySample, 0, len(samples)+int(added))
	for i := 0; i < len(samples)-1; i++ {
		a, b := samples[i], samples[i+1]
		out = append(out, a)
		n := int(math.Floor((b.Time - a.Time) / interval))
		for k := 1; k <= n; k++ {
			t := a.Time + float64(k)*interval
			if t >= b.Time {
				break
			}
			out = append(out, types.TrajectorySample{
				Position: InterpolatePosition(a.Position, b.Position, a.Time, b.Time, t),
				Time:     t,
			})
		}
	}
	return append(out, samples[len(samples)-1]), nil
}
