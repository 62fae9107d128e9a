package camera

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"thirdcoast.systems/camerakit/pkg/capture"
)

// EventType distinguishes controller events.
type EventType int

const (
	EventSessionStarted EventType = iota
	EventSessionStopped
	EventStillCaptureStarted
	EventAuthorizationFailed
	EventFlashChanged
	EventTorchChanged
	EventSetupComplete
	EventWillSwitchPosition
	EventDidSwitchPosition
	EventWillSwitchMode
	EventDidSwitchMode
	EventRecordingStarted
	EventRecordingProgress
	EventRecordingFinished
	EventRecordingFailed
	EventError
)

var eventNames = [...]string{
	EventSessionStarted:      "session_started",
	EventSessionStopped:      "session_stopped",
	EventStillCaptureStarted: "still_capture_started",
	EventAuthorizationFailed: "authorization_failed",
	EventFlashChanged:        "flash_changed",
	EventTorchChanged:        "torch_changed",
	EventSetupComplete:       "setup_complete",
	EventWillSwitchPosition:  "will_switch_position",
	EventDidSwitchPosition:   "did_switch_position",
	EventWillSwitchMode:      "will_switch_mode",
	EventDidSwitchMode:       "did_switch_mode",
	EventRecordingStarted:    "recording_started",
	EventRecordingProgress:   "recording_progress",
	EventRecordingFinished:   "recording_finished",
	EventRecordingFailed:     "recording_failed",
	EventError:               "error",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// droppable reports whether an event may be discarded when the queue is
// full. Progress ticks are superseded by the next one; everything else is
// delivered.
func (t EventType) droppable() bool {
	return t == EventRecordingProgress
}

// Event is delivered to listeners in emission order. Only the fields that
// apply to the type are set.
type Event struct {
	Type EventType
	Time time.Time

	Kind     capture.MediaKind
	Position capture.Position
	Mode     Mode
	Flash    capture.FlashMode
	Torch    capture.TorchMode
	Seconds  float64
	Path     string
	Err      error
}

// RecordingError wraps an encoder failure with the job it ended.
type RecordingError struct {
	JobID uuid.UUID
	Err   error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("recording %s: %v", e.JobID, e.Err)
}

func (e *RecordingError) Unwrap() error { return e.Err }
