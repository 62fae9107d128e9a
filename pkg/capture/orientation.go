package capture

import "math"

// OrientationFromAcceleration maps a gravity vector to a device orientation.
// The larger axis wins; ties go to portrait.
func OrientationFromAcceleration(x, y float64) Orientation {
	if math.Abs(y) < math.Abs(x) {
		if x > 0 {
			return OrientationLandscapeLeft
		}
		return OrientationLandscapeRight
	}
	if y > 0 {
		return OrientationPortraitUpsideDown
	}
	return OrientationPortrait
}

// CurrentOrientation reads m, falling back to portrait when m is nil or has
// no reading.
func CurrentOrientation(m MotionSource) Orientation {
	if m == nil {
		return OrientationPortrait
	}
	x, y, _, ok := m.Acceleration()
	if !ok {
		return OrientationPortrait
	}
	return OrientationFromAcceleration(x, y)
}

// RecordingTransform returns the clockwise display rotation in degrees for a
// recording made at o. Mirrored front-camera footage swaps the landscape
// cases.
func RecordingTransform(o Orientation, mirrored bool) int {
	switch o {
	case OrientationPortraitUpsideDown:
		return 270
	case OrientationLandscapeRight:
		if mirrored {
			return 180
		}
		return 0
	case OrientationLandscapeLeft:
		if mirrored {
			return 0
		}
		return 180
	default:
		return 90
	}
}
