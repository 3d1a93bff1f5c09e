// Package apperr defines the sentinel errors shared across Ansuz.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// Capture-source acquisition.
	ErrPermissionDenied  = errors.New("capture permission denied")
	ErrSourceUnavailable = errors.New("capture source unavailable")

	// State-machine misuse.
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrInvalidState     = errors.New("operation not allowed in current state")

	// Input validation.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// Remote-service failures.
	ErrUploadFailed   = errors.New("upload failed")
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrCommandFailed  = errors.New("voice command processing failed")
)
