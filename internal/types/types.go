package types

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Dimension is the number of spatial coordinates carried by a point
type Dimension int

const (
	Dim2D Dimension = 2
	Dim3D Dimension = 3
)

// Valid reports whether d is a supported dimensionality
func (d Dimension) Valid() bool {
	return d == Dim2D || d == Dim3D
}

func (d Dimension) String() string {
	switch d {
	case Dim2D:
		return "2D"
	case Dim3D:
		return "3D"
	default:
		return fmt.Sprintf("%dD", int(d))
	}
}

// Point is a 2D or 3D position. Z is ignored when Dim is Dim2D.
type Point struct {
	X   float64   `msgpack:"x"`
	Y   float64   `msgpack:"y"`
	Z   float64   `msgpack:"z"`
	Dim Dimension `msgpack:"dim"`
}

// Point2D creates a two dimensional point
func Point2D(x, y float64) Point {
	return Point{X: x, Y: y, Dim: Dim2D}
}

// Point3D creates a three dimensional point
func Point3D(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z, Dim: Dim3D}
}

// PointFromCoords builds a point from 2 or 3 coordinates
func PointFromCoords(coords []float64) (Point, error) {
	switch len(coords) {
	case 2:
		return Point2D(coords[0], coords[1]), nil
	case 3:
		return Point3D(coords[0], coords[1], coords[2]), nil
	default:
		return Point{}, fmt.Errorf("point must have 2 or 3 coordinates, got %d", len(coords))
	}
}

// Coords returns the point's coordinates as a slice of length Dim
func (p Point) Coords() []float64 {
	if p.Dim == Dim3D {
		return []float64{p.X, p.Y, p.Z}
	}
	return []float64{p.X, p.Y}
}

// Coord returns coordinate i, or 0 when i is beyond the point's dimensionality
func (p Point) Coord(i int) float64 {
	switch {
	case i == 0:
		return p.X
	case i == 1:
		return p.Y
	case i == 2 && p.Dim == Dim3D:
		return p.Z
	default:
		return 0
	}
}

// Finite reports whether every coordinate is a finite number
func (p Point) Finite() bool {
	for _, c := range p.Coords() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the point as [x, y] or [x, y, z]
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Coords())
}

// UnmarshalJSON decodes [x, y] or [x, y, z]
func (p *Point) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	pt, err := PointFromCoords(coords)
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

// TimedWaypoint is a position tagged with an absolute timestamp
type TimedWaypoint struct {
	Position  Point   `msgpack:"position"`
	Timestamp float64 `msgpack:"timestamp"`
}

// MarshalJSON encodes the waypoint as [x, y, t] or [x, y, z, t]
func (w TimedWaypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(append(w.Position.Coords(), w.Timestamp))
}

// UnmarshalJSON decodes [x, y, t] or [x, y, z, t]
func (w *TimedWaypoint) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) < 3 || len(values) > 4 {
		return fmt.Errorf("timed waypoint must have 3 or 4 values, got %d", len(values))
	}
	pos, err := PointFromCoords(values[:len(values)-1])
	if err != nil {
		return err
	}
	w.Position = pos
	w.Timestamp = values[len(values)-1]
	return nil
}

// TimeWindow is the [start, end] interval in seconds a primary mission must fly in
type TimeWindow struct {
	Start float64 `msgpack:"start"`
	End   float64 `msgpack:"end"`
}

// MarshalJSON encodes the window as [start, end]
func (tw TimeWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{tw.Start, tw.End})
}

// UnmarshalJSON decodes [start, end]
func (tw *TimeWindow) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) != 2 {
		return fmt.Errorf("time window must have 2 values, got %d", len(values))
	}
	tw.Start, tw.End = values[0], values[1]
	return nil
}

// Duration returns End - Start, which may be negative for an inverted window
func (tw TimeWindow) Duration() float64 {
	return tw.End - tw.Start
}

// PrimaryMission is the flight plan being evaluated
type PrimaryMission struct {
	Waypoints  []Point    `json:"waypoints" msgpack:"waypoints"`
	TimeWindow TimeWindow `json:"time_window" msgpack:"time_window"`
}

// OtherMission is an already scheduled or recorded flight
type OtherMission struct {
	ID        string          `json:"id" msgpack:"id"`
	Waypoints []TimedWaypoint `json:"waypoints" msgpack:"waypoints"`
}

// TrajectorySample is a time-ordered observation of an other mission
type TrajectorySample struct {
	Position Point
	Time     float64
}

// Severity describes how far below the safety threshold a conflict is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every tier from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank returns the index of the severity in Severities, or -1
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return i
		}
	}
	return -1
}

// ConflictLocation holds the two positions that were too close
type ConflictLocation struct {
	Primary Point `json:"primary" msgpack:"primary"`
	Other   Point `json:"other" msgpack:"other"`
}

// ConflictRecord describes one loss of separation
type ConflictRecord struct {
	Location  ConflictLocation `json:"location" msgpack:"location"`
	Time      float64          `json:"time" msgpack:"time"`
	Distance  float64          `json:"distance" msgpack:"distance"`
	MissionID string           `json:"mission_id" msgpack:"mission_id"`
	Severity  Severity         `json:"severity" msgpack:"severity"`
}

// Status is the overall outcome of a conflict check
type Status string

const (
	StatusClear    Status = "clear"
	StatusConflict Status = "conflict detected"
)

// CheckRequest is the input of a conflict check
type CheckRequest struct {
	PrimaryMission PrimaryMission `json:"primary_mission" msgpack:"primary_mission"`
	OtherMissions  []OtherMission `json:"other_missions" msgpack:"other_missions"`
}

// CheckResult is the output of a conflict check
type CheckResult struct {
	Status    Status           `json:"status" msgpack:"status"`
	Conflicts []ConflictRecord `json:"conflicts" msgpack:"conflicts"`
}

// CheckRequestMessage carries a raw request body over the message bus
type CheckRequestMessage struct {
	RequestID   string          `json:"request_id"`
	Source      string          `json:"source"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Payload     json.RawMessage `json:"payload"`
}

// CheckReport is the record of one completed (or failed) check
type CheckReport struct {
	CheckID      string           `json:"check_id"`
	RequestID    string           `json:"request_id,omitempty"`
	RequestKey   string           `json:"request_key"`
	Source       string           `json:"source"`
	CheckedAt    time.Time        `json:"checked_at"`
	Status       Status           `json:"status"`
	Dimensions   Dimension        `json:"dimensions"`
	SegmentCount int              `json:"segment_count"`
	MissionCount int              `json:"mission_count"`
	Conflicts    []ConflictRecord `json:"conflicts"`
	Duration     time.Duration    `json:"duration"`
	Cached       bool             `json:"cached"`
	Error        string           `json:"error,omitempty"`
}

// Result returns the status and conflicts of the report
func (r *CheckReport) Result() CheckResult {
	conflicts := r.Conflicts
	if conflicts == nil {
		conflicts = []ConflictRecord{}
	}
	return CheckResult{Status: r.Status, Conflicts: conflicts}
}

// SystemStats is a snapshot of the service counters
type SystemStats struct {
	Time             time.Time     `json:"time"`
	TotalChecks      uint64        `json:"total_checks"`
	FailedChecks     uint64        `json:"failed_checks"`
	ClearChecks      uint64        `json:"clear_checks"`
	ConflictedChecks uint64        `json:"conflicted_checks"`
	TotalConflicts   uint64        `json:"total_conflicts"`
	SeverityCounts   [4]uint64     `json:"severity_counts"`
	CacheHits        uint64        `json:"cache_hits"`
	CacheMisses      uint64        `json:"cache_misses"`
	LastCheckTime    time.Time     `json:"last_check_time"`
	ProcessingTime   time.Duration `json:"processing_time"`
	Uptime           time.Duration `json:"uptime"`
}
