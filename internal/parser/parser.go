package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/saviobatista/uav-deconfliction/internal/deconflict"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// ErrMissingMissionData is returned when a request has no primary mission or
// no other missions to compare it with.
var ErrMissingMissionData = errors.New("missing required mission data")

// rawRequest is the loosely typed wire form of a check request. Fields are
// decoded one at a time so that errors can name the offending element.
type rawRequest struct {
	PrimaryMission *rawPrimary       `json:"primary_mission"`
	OtherMissions  []json.RawMessage `json:"other_missions"`
}

type rawPrimary struct {
	Waypoints  []json.RawMessage `json:"waypoints"`
	TimeWindow json.RawMessage   `json:"time_window"`
}

type rawOther struct {
	ID        *string           `json:"id"`
	Waypoints []json.RawMessage `json:"waypoints"`
}

// ParseRequest decodes a check request body. A missing primary mission or an
// empty other_missions list yields ErrMissingMissionData; bad coordinates and
// wrong arities yield a *deconflict.ValidationError.
func ParseRequest(data []byte) (*types.CheckRequest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrMissingMissionData
	}

	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalid("body", "invalid JSON: %v", err)
	}
	if raw.PrimaryMission == nil || len(raw.OtherMissions) == 0 {
		return nil, ErrMissingMissionData
	}

	primary, err := parsePrimary(raw.PrimaryMission)
	if err != nil {
		return nil, err
	}

	others := make([]types.OtherMission, 0, len(raw.OtherMissions))
	for i, msg := range raw.OtherMissions {
		other, err := parseOther(msg, fmt.Sprintf("other_missions[%d]", i))
		if err != nil {
			return nil, err
		}
		others = append(others, other)
	}

	return &types.CheckRequest{PrimaryMission: primary, OtherMissions: others}, nil
}

func parsePrimary(rp *rawPrimary) (types.PrimaryMission, error) {
	var pm types.PrimaryMission

	pm.Waypoints = make([]types.Point, 0, len(rp.Waypoints))
	for i, msg := range rp.Waypoints {
		field := fmt.Sprintf("primary_mission.waypoints[%d]", i)
		coords, err := parseNumbers(msg, field)
		if err != nil {
			return pm, err
		}
		p, err := types.PointFromCoords(coords)
		if err != nil {
			return pm, invalid(field, "%v", err)
		}
		pm.Waypoints = append(pm.Waypoints, p)
	}

	// Missing time window defaults to [0, 0]
	if len(rp.TimeWindow) > 0 && string(rp.TimeWindow) != "null" {
		values, err := parseNumbers(rp.TimeWindow, "primary_mission.time_window")
		if err != nil {
			return pm, err
		}
		if len(values) != 2 {
			return pm, invalid("primary_mission.time_window", "expected [start, end], got %d values", len(values))
		}
		pm.TimeWindow = types.TimeWindow{Start: values[0], End: values[1]}
	}

	return pm, nil
}

func parseOther(msg json.RawMessage, field string) (types.OtherMission, error) {
	var ro rawOther
	if err := json.Unmarshal(msg, &ro); err != nil {
		return types.OtherMission{}, invalid(field, "invalid mission: %v", err)
	}

	om := types.OtherMission{ID: deconflict.UnknownMissionID}
	if ro.ID != nil {
		om.ID = *ro.ID
	}

	om.Waypoints = make([]types.TimedWaypoint, 0, len(ro.Waypoints))
	for i, wmsg := range ro.Waypoints {
		wfield := fmt.Sprintf("%s.waypoints[%d]", field, i)
		values, err := parseNumbers(wmsg, wfield)
		if err != nil {
			return om, err
		}
		if len(values) < 3 || len(values) > 4 {
			return om, invalid(wfield, "expected [x, y, t] or [x, y, z, t], got %d values", len(values))
		}
		pos, err := types.PointFromCoords(values[:len(values)-1])
		if err != nil {
			return om, invalid(wfield, "%v", err)
		}
		om.Waypoints = append(om.Waypoints, types.TimedWaypoint{Position: pos, Timestamp: values[len(values)-1]})
	}

	return om, nil
}

func parseNumbers(msg json.RawMessage, field string) ([]float64, error) {
	var values []float64
	if err := json.Unmarshal(msg, &values); err != nil {
		return nil, invalid(field, "expected an array of numbers")
	}
	return values, nil
}

func invalid(field, format string, args ...any) error {
	return &deconflict.ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
