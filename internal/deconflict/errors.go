package deconflict

import (
	"errors"
	"fmt"
)

// ErrMalformedMission is returned when a mission cannot be checked at all.
var ErrMalformedMission = errors.New("malformed mission")

// ErrSampleLimit is returned when resampling an other mission would produce
// more than MaxResampledSamples samples.
var ErrSampleLimit = errors.New("sample limit exceeded")

// ValidationError names the offending field of a malformed mission.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrMalformedMission, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedMission) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrMalformedMission
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func malformed(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
