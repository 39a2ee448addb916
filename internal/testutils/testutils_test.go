package testutils

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

func TestMockPrimaryMission(t *testing.T) {
	m := MockPrimaryMission(0, 100, 0, 0, 10, 10, 20)

	// The trailing odd coordinate is dropped
	if len(m.Waypoints) != 2 {
		t.Fatalf("Expected 2 waypoints, got %d", len(m.Waypoints))
	}
	if m.Waypoints[1] != types.Point2D(10, 10) {
		t.Errorf("Unexpected second waypoint: %+v", m.Waypoints[1])
	}
	if m.TimeWindow.End != 100 {
		t.Errorf("Expected window end 100, got %v", m.TimeWindow.End)
	}
}

func TestMockOtherMission(t *testing.T) {
	m := MockOtherMission("drone_1", 0, 0, 5, 1, 1, 10)
	if m.ID != "drone_1" {
		t.Errorf("Expected id drone_1, got %s", m.ID)
	}
	if len(m.Waypoints) != 2 || m.Waypoints[1].Timestamp != 10 {
		t.Errorf("Unexpected waypoints: %+v", m.Waypoints)
	}
}

func TestMockCheckRequestJSON(t *testing.T) {
	data := MockCheckRequestJSON()

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Mock request is not valid JSON: %v", err)
	}
	for _, key := range []string{"primary_mission", "other_missions"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Mock request is missing %q", key)
		}
	}
	if !strings.Contains(string(data), `"drone_5"`) {
		t.Errorf("Expected drone_5 in %s", data)
	}
}

func TestMockCheckReport(t *testing.T) {
	tests := []struct {
		name      string
		conflicts []types.ConflictRecord
		want      types.Status
	}{
		{"clear", nil, types.StatusClear},
		{"conflict", []types.ConflictRecord{{MissionID: "drone_5", Severity: types.SeverityHigh}}, types.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MockCheckReport("c1", tt.conflicts...)
			if r.Status != tt.want {
				t.Errorf("Expected status %q, got %q", tt.want, r.Status)
			}
			if r.Conflicts == nil {
				t.Error("Conflicts should never be nil")
			}
			if time.Since(r.CheckedAt) > 5*time.Second {
				t.Error("CheckedAt should be recent")
			}
		})
	}
}

func TestWaitForCondition_Success(t *testing.T) {
	if err := WaitForCondition(func() bool { return true }, time.Second); err != nil {
		t.Errorf("WaitForCondition() should succeed, got error: %v", err)
	}
}

func TestWaitForCondition_Timeout(t *testing.T) {
	err := WaitForCondition(func() bool { return false }, 100*time.Millisecond)
	if err == nil {
		t.Fatal("WaitForCondition() should timeout")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("Expected timeout error, got: %v", err)
	}
}

func TestWaitForCondition_ConditionBecomesTrue(t *testing.T) {
	counter := 0
	condition := func() bool {
		counter++
		return counter >= 3
	}

	if err := WaitForCondition(condition, time.Second); err != nil {
		t.Errorf("WaitForCondition() should succeed, got error: %v", err)
	}
	if counter < 3 {
		t.Errorf("Condition should have been called at least 3 times, got %d", counter)
	}
}
