package deconflict

import "github.com/saviobatista/uav-deconfliction/internal/types"

// EstimateTimeline assigns each primary waypoint an estimated arrival time.
// Time is spread over the window in proportion to the distance flown; when
// the path has no length it is spread evenly by waypoint index. The first
// entry is always window.Start and the last always window.End.
func EstimateTimeline(waypoints []types.Point, window types.TimeWindow) []float64 {
	n := len(waypoints)
	if n == 0 {
		return []float64{}
	}

	timeline := make([]float64, n)
	timeline[0] = window.Start
	if n == 1 {
		return timeline
	}

	duration := window.Duration()
	cumulative := make([]float64, n)
	for i := 1; i < n; i++ {
		cumulative[i] = cumulative[i-1] + Distance(waypoints[i-1], waypoints[i])
	}
	total := cumulative[n-1]

	for i := 1; i < n-1; i++ {
		if total == 0 {
			timeline[i] = window.Start + duration*float64(i)/float64(n-1)
		} else {
			timeline[i] = window.Start + duration*cumulative[i]/total
		}
	}
	timeline[n-1] = window.End

	return timeline
}
