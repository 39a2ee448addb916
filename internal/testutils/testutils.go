package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// MockPrimaryMission creates a 2D primary mission flying through the given
// (x, y) pairs within [start, end]
func MockPrimaryMission(start, end float64, xy ...float64) types.PrimaryMission {
	waypoints := make([]types.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		waypoints = append(waypoints, types.Point2D(xy[i], xy[i+1]))
	}
	return types.PrimaryMission{
		Waypoints:  waypoints,
		TimeWindow: types.TimeWindow{Start: start, End: end},
	}
}

// MockOtherMission creates a 2D other mission from (x, y, t) triples
func MockOtherMission(id string, xyt ...float64) types.OtherMission {
	waypoints := make([]types.TimedWaypoint, 0, len(xyt)/3)
	for i := 0; i+2 < len(xyt); i += 3 {
		waypoints = append(waypoints, types.TimedWaypoint{
			Position:  types.Point2D(xyt[i], xyt[i+1]),
			Timestamp: xyt[i+2],
		})
	}
	return types.OtherMission{ID: id, Waypoints: waypoints}
}

// MockCheckRequest returns the temporal conflict case: drone_5 loses
// separation with the primary at t=10 (high) and t=40 (medium)
func MockCheckRequest() *types.CheckRequest {
	return &types.CheckRequest{
		PrimaryMission: MockPrimaryMission(0, 100, 0, 0, 20, 20, 40, 40, 60, 20),
		OtherMissions: []types.OtherMission{
			MockOtherMission("drone_5", 10, 10, 10, 30, 30, 40, 50, 50, 70, 70, 70, 100),
		},
	}
}

// MockCheckRequestJSON returns MockCheckRequest encoded as a request body
func MockCheckRequestJSON() []byte {
	data, err := json.Marshal(MockCheckRequest())
	if err != nil {
		panic(fmt.Sprintf("marshal mock request: %v", err))
	}
	return data
}

// MockCheckReport creates a finished report for the given check id
func MockCheckReport(checkID string, conflicts ...types.ConflictRecord) *types.CheckReport {
	status := types.StatusClear
	if len(conflicts) > 0 {
		status = types.StatusConflict
	}
	if conflicts == nil {
		conflicts = []types.ConflictRecord{}
	}
	return &types.CheckReport{
		CheckID:      checkID,
		RequestKey:   "key-" + checkID,
		Source:       "test-source",
		CheckedAt:    time.Now().UTC(),
		Status:       status,
		Dimensions:   types.Dim2D,
		SegmentCount: 2,
		MissionCount: 1,
		Conflicts:    conflicts,
		Duration:     time.Millisecond,
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if condition() {
		return nil
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// SkipIfShort skips container backed tests under -short
func SkipIfShort(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
