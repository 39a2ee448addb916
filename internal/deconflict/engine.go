// Package deconflict decides whether a planned drone mission passes unsafely
// close, in space and time, to other drones' missions.
//
// The primary mission is treated as continuous: its waypoints are given
// estimated times in proportion to path length and positions between them
// are linearly interpolated. Other missions are observed only at their own
// recorded waypoint times (or at a fixed resampling interval when
// Params.SamplingInterval is set), so a closest approach that falls strictly
// between two of their waypoints can be missed.
package deconflict

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// UnknownMissionID is the id given to other missions decoded without one.
const UnknownMissionID = "unknown"

// Result is the outcome of a check together with the derived data it used.
type Result struct {
	Status     types.Status
	Conflicts  []types.ConflictRecord
	Timeline   []float64
	Dimensions types.Dimension
	Segments   int
}

// CheckResult returns the wire form of the result.
func (r *Result) CheckResult() types.CheckResult {
	return types.CheckResult{Status: r.Status, Conflicts: r.Conflicts}
}

// Engine runs conflict checks with a fixed set of parameters. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	params Params
}

// New creates an engine after validating params.
func New(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if params.DimensionPolicy == "" {
		params.DimensionPolicy = PolicyTruncate
	}
	return &Engine{params: params}, nil
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params {
	return e.params
}

// CheckConflicts runs a check with DefaultParams.
func CheckConflicts(primary types.PrimaryMission, others []types.OtherMission) (types.Status, []types.ConflictRecord, error) {
	engine, err := New(DefaultParams())
	if err != nil {
		return "", nil, err
	}
	res, err := engine.Check(context.Background(), primary, others)
	if err != nil {
		return "", nil, err
	}
	return res.Status, res.Conflicts, nil
}

// Check compares primary against every other mission. Conflicts are ordered
// by other mission (input order), then segment, then sample time. Other
// missions without waypoints are skipped.
func (e *Engine) Check(ctx context.Context, primary types.PrimaryMission, others []types.OtherMission) (*Result, error) {
	if err := Validate(primary, others); err != nil {
		return nil, err
	}

	dim := primary.Waypoints[0].Dim
	timeline := EstimateTimeline(primary.Waypoints, primary.TimeWindow)
	segments := Segments(primary.Waypoints, timeline)

	perMission := make([][]types.ConflictRecord, len(others))

	if e.params.Workers > 1 && len(others) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.params.Workers)
		for i := range others {
			i := i
			g.Go(func() error {
				conflicts, err := e.checkMission(gctx, segments, others[i], i, dim)
				perMission[i] = conflicts
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range others {
			conflicts, err := e.checkMission(ctx, segments, others[i], i, dim)
			if err != nil {
				return nil, err
			}
			perMission[i] = conflicts
		}
	}

	conflicts := []types.ConflictRecord{}
	for _, c := range perMission {
		conflicts = append(conflicts, c...)
	}

	status := types.StatusClear
	if len(conflicts) > 0 {
		status = types.StatusConflict
	}

	return &Result{
		Status:     status,
		Conflicts:  conflicts,
		Timeline:   timeline,
		Dimensions: dim,
		Segments:   len(segments),
	}, nil
}

func (e *Engine) checkMission(ctx context.Context, segments []Segment, other types.OtherMission, index int, dim types.Dimension) ([]types.ConflictRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(other.Waypoints) == 0 {
		return nil, nil
	}

	trajectory, err := Resample(InterpolateTrajectory(other.Waypoints), e.params.SamplingInterval)
	if err != nil {
		return nil, &ValidationError{
			Field:  fmt.Sprintf("other_missions[%d].waypoints", index),
			Reason: err.Error(),
			Err:    err,
		}
	}

	var conflicts []types.ConflictRecord
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, e.params.CheckSegment(seg, trajectory, other.ID, dim)...)
	}
	return conflicts, nil
}

// Validate rejects missions the engine cannot reason about: a primary
// mission without waypoints, points that are not 2D or 3D, and non-finite
// coordinates or timestamps. An inverted or zero-length time window is
// accepted.
func Validate(primary types.PrimaryMission, others []types.OtherMission) error {
	if len(primary.Waypoints) == 0 {
		return malformed("primary_mission.waypoints", "at least one waypoint is required")
	}
	for i, p := range primary.Waypoints {
		if err := validatePoint(p); err != nil {
			return malformed(fmt.Sprintf("primary_mission.waypoints[%d]", i), "%v", err)
		}
	}
	if !finite(primary.TimeWindow.Start) || !finite(primary.TimeWindow.End) {
		return malformed("primary_mission.time_window", "bounds must be finite")
	}

	for i, other := range others {
		for j, w := range other.Waypoints {
			field := fmt.Sprintf("other_missions[%d].waypoints[%d]", i, j)
			if err := validatePoint(w.Position); err != nil {
				return malformed(field, "%v", err)
			}
			if !finite(w.Timestamp) {
				return malformed(field, "timestamp must be finite")
			}
		}
	}
	return nil
}

func validatePoint(p types.Point) error {
	if !p.Dim.Valid() {
		return fmt.Errorf("expected 2 or 3 coordinates, got %d", int(p.Dim))
	}
	if !p.Finite() {
		return fmt.Errorf("coordinates must be finite")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
