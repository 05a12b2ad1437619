package pixelplot

import (
	"fmt"
)

// ResolveFrame turns a frame selector into a frame index. A non-nil cadence takes
// precedence over frame and is looked up by exact match, first match wins.
func ResolveFrame(cadences []int, frame int, cadence *int) (int, error) {
	if cadence == nil {
		return frame, nil
	}
	for i, c := range cadences {
		if c == *cadence {
			return i, nil
		}
	}
	return 0, cadenceRangeError(*cadence, cadences)
}

// FrameKey formats a frame index as the zero-padded key used inside the backgrounds group.
func FrameKey(frame int) string {
	return fmt.Sprintf("%04d", frame)
}

func checkFrame(frame, n int) error {
	if frame < 0 || frame >= n {
		return frameRangeError(fmt.Sprint(frame), n, "frames")
	}
	return nil
}
