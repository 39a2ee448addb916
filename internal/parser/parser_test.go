package parser

import (
	"errors"
	"testing"

	"github.com/saviobatista/uav-deconfliction/internal/deconflict"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

func TestParseRequest(t *testing.T) {
	raw := `{
		"primary_mission": {"waypoints": [[0, 0], [20, 20]], "time_window": [0, 100]},
		"other_missions": [
			{"id": "drone_5", "waypoints": [[10, 10, 10], [30, 30, 40]]},
			{"waypoints": [[1, 2, 3, 4]]}
		]
	}`

	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRequest() unexpected error: %v", err)
	}

	primary := req.PrimaryMission
	if len(primary.Waypoints) != 2 || primary.Waypoints[1] != types.Point2D(20, 20) {
		t.Errorf("Unexpected primary waypoints: %+v", primary.Waypoints)
	}
	if primary.TimeWindow != (types.TimeWindow{Start: 0, End: 100}) {
		t.Errorf("Unexpected time window: %+v", primary.TimeWindow)
	}

	if len(req.OtherMissions) != 2 {
		t.Fatalf("Expected 2 other missions, got %d", len(req.OtherMissions))
	}
	if req.OtherMissions[0].ID != "drone_5" || req.OtherMissions[0].Waypoints[1].Timestamp != 40 {
		t.Errorf("Unexpected first mission: %+v", req.OtherMissions[0])
	}

	second := req.OtherMissions[1]
	if second.ID != deconflict.UnknownMissionID {
		t.Errorf("Expected missing id to default to %q, got %q", deconflict.UnknownMissionID, second.ID)
	}
	if second.Waypoints[0].Position != types.Point3D(1, 2, 3) || second.Waypoints[0].Timestamp != 4 {
		t.Errorf("Unexpected 3D waypoint: %+v", second.Waypoints[0])
	}
}

func TestParseRequest_DefaultTimeWindow(t *testing.T) {
	req, err := ParseRequest([]byte(`{"primary_mission": {"waypoints": [[5, 5]]}, "other_missions": [{"id": "a", "waypoints": []}]}`))
	if err != nil {
		t.Fatalf("ParseRequest() unexpected error: %v", err)
	}
	if req.PrimaryMission.TimeWindow != (types.TimeWindow{}) {
		t.Errorf("Expected [0, 0] time window, got %+v", req.PrimaryMission.TimeWindow)
	}
	if len(req.OtherMissions[0].Waypoints) != 0 {
		t.Errorf("Expected empty waypoint list, got %+v", req.OtherMissions[0].Waypoints)
	}
}

func TestParseRequest_MissionID(t *testing.T) {
	tests := []struct {
		name  string
		other string
		want  string
	}{
		{"missing key", `{"waypoints": [[1, 1, 1]]}`, deconflict.UnknownMissionID},
		{"explicit empty", `{"id": "", "waypoints": [[1, 1, 1]]}`, ""},
		{"set", `{"id": "drone_9", "waypoints": [[1, 1, 1]]}`, "drone_9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"primary_mission": {"waypoints": [[0, 0]]}, "other_missions": [` + tt.other + `]}`
			req, err := ParseRequest([]byte(raw))
			if err != nil {
				t.Fatalf("ParseRequest() unexpected error: %v", err)
			}
			if got := req.OtherMissions[0].ID; got != tt.want {
				t.Errorf("ID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRequest_MissingData(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty body", ``},
		{"no primary mission", `{"other_missions": [{"id": "a", "waypoints": []}]}`},
		{"null primary mission", `{"primary_mission": null, "other_missions": [{"id": "a"}]}`},
		{"no other missions", `{"primary_mission": {"waypoints": [[0, 0]]}}`},
		{"empty other missions", `{"primary_mission": {"waypoints": [[0, 0]]}, "other_missions": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.raw))
			if !errors.Is(err, ErrMissingMissionData) {
				t.Errorf("Expected ErrMissingMissionData, got %v", err)
			}
		})
	}
}

func TestParseRequest_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{
			name:  "invalid JSON",
			raw:   `{"primary_mission":`,
			field: "body",
		},
		{
			name:  "one coordinate",
			raw:   `{"primary_mission": {"waypoints": [[0]]}, "other_missions": [{"id": "a"}]}`,
			field: "primary_mission.waypoints[0]",
		},
		{
			name:  "non-numeric coordinate",
			raw:   `{"primary_mission": {"waypoints": [[0, 0], ["a", 1]]}, "other_missions": [{"id": "a"}]}`,
			field: "primary_mission.waypoints[1]",
		},
		{
			name:  "short time window",
			raw:   `{"primary_mission": {"waypoints": [[0, 0]], "time_window": [5]}, "other_missions": [{"id": "a"}]}`,
			field: "primary_mission.time_window",
		},
		{
			name:  "waypoint without timestamp",
			raw:   `{"primary_mission": {"waypoints": [[0, 0]]}, "other_missions": [{"id": "a", "waypoints": [[1, 2]]}]}`,
			field: "other_missions[0].waypoints[0]",
		},
		{
			name:  "waypoint with too many values",
			raw:   `{"primary_mission": {"waypoints": [[0, 0]]}, "other_missions": [{"id": "a"}, {"id": "b", "waypoints": [[1, 2, 3, 4, 5]]}]}`,
			field: "other_missions[1].waypoints[0]",
		},
		{
			name:  "mission is not an object",
			raw:   `{"primary_mission": {"waypoints": [[0, 0]]}, "other_missions": [42]}`,
			field: "other_missions[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.raw))
			if !errors.Is(err, deconflict.ErrMalformedMission) {
				t.Fatalf("Expected ErrMalformedMission, got %v", err)
			}
			var verr *deconflict.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}
