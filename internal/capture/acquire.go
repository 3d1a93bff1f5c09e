package capture

import (
	"context"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Platform supplies raw capture streams. Opening a source may suspend
// until the user answers a permission prompt on the other end, so both
// calls take a context. Implementations return
// apperr.ErrPermissionDenied when the user refuses and
// apperr.ErrSourceUnavailable when no matching source exists.
type Platform interface {
	// OpenMicrophone requests an audio-only input stream.
	OpenMicrophone(ctx context.Context) (*Stream, error)
	// OpenDisplay requests a shared screen/tab stream. The result may
	// carry video tracks; callers are expected to discard them.
	OpenDisplay(ctx context.Context) (*Stream, error)
}

// Acquire obtains a normalized audio stream for the requested source.
// Display captures have their video tracks stopped synchronously before
// the stream is returned: the platform only hands audio out together
// with video, and the video must never be retained. A stream without a
// live audio track is released and rejected.
func Acquire(ctx context.Context, p Platform, kind models.SourceKind) (*Stream, error) {
	var (
		stream *Stream
		err    error
	)
	switch kind {
	case models.Microphone:
		stream, err = p.OpenMicrophone(ctx)
	case models.SystemAudio:
		stream, err = p.OpenDisplay(ctx)
	default:
		return nil, fmt.Errorf("capture: unknown source kind %v", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("capture: acquire %s: %w", kind, err)
	}

	if kind == models.SystemAudio {
		for _, t := range stream.Tracks() {
			if t.Kind == TrackVideo {
				t.Stop()
			}
		}
	}

	if !stream.HasLiveAudio() {
		release(stream)
		return nil, fmt.Errorf("capture: %s has no audio track: %w", kind, apperr.ErrSourceUnavailable)
	}
	return stream, nil
}

// release rejects a stream nobody will read: it stops the producer and
// drains the chunk channel so a producer blocked on a send can finish.
func release(stream *Stream) {
	stream.RequestStop()
	stream.StopTracks()
	go func() {
		for range stream.Chunks() {
		}
	}()
}
