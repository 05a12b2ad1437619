package pixelplot

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is wrapped by every RangeError.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrNoFiniteData is returned when the selected frame holds no finite value to render.
	ErrNoFiniteData = errors.New("frame has no finite values")

	// ErrShapeMismatch is returned when a mask or subtracted frame does not match the flux frame.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidMask is returned for aperture masks or mask colours that cannot be resolved.
	ErrInvalidMask = errors.New("invalid aperture mask")
)

// RangeError reports an invalid frame selector or cut together with the valid range.
// An empty Range means there is nothing to select from; Of names what is missing.
type RangeError struct {
	Name  string
	Value string
	Range string
	Of    string
}

func (e *RangeError) Error() string {
	if e.Range == "" {
		return fmt.Sprintf("%s %s is out of bounds, there are no %s.", e.Name, e.Value, e.Of)
	}
	return fmt.Sprintf("%s %s is out of bounds, must be in the range %s.", e.Name, e.Value, e.Range)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfBounds
}

func cadenceRangeError(cadence int, cadences []int) error {
	e := &RangeError{Name: "cadenceno", Value: fmt.Sprint(cadence), Of: "cadences"}
	if len(cadences) > 0 {
		e.Range = fmt.Sprintf("%d-%d", cadences[0], cadences[len(cadences)-1])
	}
	return e
}

// frameRangeError reports a frame outside [0, n) of the named collection.
func frameRangeError(frame string, n int, of string) error {
	e := &RangeError{Name: "frame", Value: frame, Of: of}
	if n > 0 {
		e.Range = fmt.Sprintf("0-%d", n-1)
	}
	return e
}
