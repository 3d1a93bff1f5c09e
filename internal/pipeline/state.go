// Package pipeline drives a recording or uploaded file through the
// processing state machine: capture, upload, transcription, analysis.
package pipeline

// State is the stage of the current processing run.
type State int

const (
	Idle State = iota
	Recording
	ReadyToProcess
	Uploading
	Transcribing
	Analyzing
	Complete
	Error
)

var stateNames = map[State]string{
	Idle:           "idle",
	Recording:      "recording",
	ReadyToProcess: "ready",
	Uploading:      "uploading",
	Transcribing:   "transcribing",
	Analyzing:      "analyzing",
	Complete:       "complete",
	Error:          "error",
}

// String returns the wire name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// processing reports whether the run is in the non-interruptible
// network span.
func (s State) processing() bool {
	return s == Uploading || s == Transcribing || s == Analyzing
}
