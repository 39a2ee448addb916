package deconflict

import (
	"fmt"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// DimensionPolicy decides how points of different dimensionality are compared.
type DimensionPolicy string

const (
	// PolicyTruncate compares only the coordinates both points have. A 2D
	// point compared against a 3D point ignores the altitude.
	PolicyTruncate DimensionPolicy = "truncate"

	// PolicyZeroFill treats a missing altitude as 0.
	PolicyZeroFill DimensionPolicy = "zero-fill"
)

// ParseDimensionPolicy parses a policy name.
func ParseDimensionPolicy(s string) (DimensionPolicy, error) {
	switch DimensionPolicy(s) {
	case PolicyTruncate, "":
		return PolicyTruncate, nil
	case PolicyZeroFill:
		return PolicyZeroFill, nil
	default:
		return "", fmt.Errorf("unknown dimension policy %q", s)
	}
}

// SeverityBreakpoints are distance/threshold ratios. A ratio below Critical is
// critical, below High is high, below Medium is medium, anything else is low.
type SeverityBreakpoints struct {
	Critical float64
	High     float64
	Medium   float64
}

// DefaultSeverityBreakpoints returns the 0.5 / 0.75 / 1.0 tiers.
func DefaultSeverityBreakpoints() SeverityBreakpoints {
	return SeverityBreakpoints{Critical: 0.5, High: 0.75, Medium: 1.0}
}

// Params is the full configuration of one conflict check.
type Params struct {
	MinSafeDistance2D float64
	MinSafeDistance3D float64
	Severity          SeverityBreakpoints
	DimensionPolicy   DimensionPolicy

	// SamplingInterval, when positive, adds samples every SamplingInterval
	// seconds between an other mission's recorded waypoints. Zero checks only
	// at the recorded waypoint times.
	SamplingInterval float64

	// Workers > 1 checks other missions concurrently.
	Workers int
}

// DefaultParams returns a 10 unit safety distance in both 2D and 3D.
func DefaultParams() Params {
	return Params{
		MinSafeDistance2D: 10.0,
		MinSafeDistance3D: 10.0,
		Severity:          DefaultSeverityBreakpoints(),
		DimensionPolicy:   PolicyTruncate,
		Workers:           1,
	}
}

// Threshold returns the safety distance for a primary mission of dimensionality dim.
func (p Params) Threshold(dim types.Dimension) float64 {
	if dim == types.Dim3D {
		return p.MinSafeDistance3D
	}
	return p.MinSafeDistance2D
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	if !(p.MinSafeDistance2D > 0) {
		return fmt.Errorf("2D safety distance must be positive, got %v", p.MinSafeDistance2D)
	}
	if !(p.MinSafeDistance3D > 0) {
		return fmt.Errorf("3D safety distance must be positive, got %v", p.MinSafeDistance3D)
	}
	b := p.Severity
	if !(b.Critical > 0 && b.Critical < b.High && b.High < b.Medium && b.Medium <= 1) {
		return fmt.Errorf("severity breakpoints must satisfy 0 < critical < high < medium <= 1, got %v/%v/%v",
			b.Critical, b.High, b.Medium)
	}
	if _, err := ParseDimensionPolicy(string(p.DimensionPolicy)); err != nil {
		return err
	}
	if p.SamplingInterval < 0 {
		return fmt.Errorf("sampling interval must not be negative, got %v", p.SamplingInterval)
	}
	return nil
}
