package deconflict

import "github.com/saviobatista/uav-deconfliction/internal/types"

// ClassifySeverity maps a distance to a severity tier using the default breakpoints.
func ClassifySeverity(distance, threshold float64) types.Severity {
	return DefaultSeverityBreakpoints().Classify(distance, threshold)
}

// Classify maps distance/threshold onto the breakpoints. Callers only
// classify distances already below the threshold, so with the default
// Medium breakpoint of 1.0 the low tier is never produced.
func (b SeverityBreakpoints) Classify(distance, threshold float64) types.Severity {
	ratio := distance / threshold
	switch {
	case ratio < b.Critical:
		return types.SeverityCritical
	case ratio < b.High:
		return types.SeverityHigh
	case ratio < b.Medium:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}
