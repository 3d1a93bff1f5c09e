package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Session wraps a stream in a chunked recorder. Start and Stop form an
// atomic unit of work yielding one assembled audio blob; at most one
// capture is live per session.
type Session struct {
	platform Platform
	logger   *slog.Logger

	mu        sync.Mutex
	stream    *Stream
	collected [][]byte
	done      chan struct{}
}

// NewSession creates a recording session over the given platform.
func NewSession(platform Platform, logger *slog.Logger) *Session {
	return &Session{platform: platform, logger: logger}
}

// Active reports whether a capture is currently live.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Start acquires a stream for the source kind and begins accumulating
// its chunks. Fails with apperr.ErrAlreadyRecording when a capture is
// already live.
func (s *Session) Start(ctx context.Context, kind models.SourceKind) error {
	s.mu.Lock()
	if s.stream != nil {
		s.mu.Unlock()
		return apperr.ErrAlreadyRecording
	}
	s.mu.Unlock()

	stream, err := Acquire(ctx, s.platform, kind)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stream != nil {
		// Lost the race to a concurrent Start while acquiring.
		s.mu.Unlock()
		release(stream)
		return apperr.ErrAlreadyRecording
	}
	s.stream = stream
	s.collected = nil
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		// Collect locally and publish once: a collector that outlives
		// its capture (Stop with a cancelled context) must not leak
		// chunks into the next one.
		var chunks [][]byte
		for chunk := range stream.Chunks() {
			if len(chunk) == 0 {
				continue
			}
			chunks = append(chunks, chunk)
		}
		s.mu.Lock()
		if s.stream == stream {
			s.collected = chunks
		}
		s.mu.Unlock()
	}()

	s.logger.Info("capture: started", slog.String("source", kind.String()))
	return nil
}

// Stop finalizes the capture: it asks the recorder to stop, waits for
// the chunk channel to close so the final chunk is not lost, stops the
// stream's tracks and concatenates the chunks in arrival order. It
// returns nil when no capture was live or when no audio arrived.
func (s *Session) Stop(ctx context.Context) (*models.AudioBlob, error) {
	s.mu.Lock()
	stream := s.stream
	done := s.done
	s.mu.Unlock()
	if stream == nil {
		return nil, nil
	}

	stream.RequestStop()
	select {
	case <-done:
	case <-ctx.Done():
		stream.StopTracks()
		s.clear()
		return nil, fmt.Errorf("capture: stop: %w", ctx.Err())
	}
	stream.StopTracks()

	s.mu.Lock()
	chunks := s.collected
	mime := stream.MIME
	s.mu.Unlock()
	s.clear()

	if len(chunks) == 0 {
		s.logger.Info("capture: stopped with no audio, discarding")
		return nil, nil
	}

	var size int
	for _, c := range chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range chunks {
		data = append(data, c...)
	}

	blob := &models.AudioBlob{
		Filename: "recording-" + time.Now().UTC().Format("20060102-150405") + extForMIME(mime),
		MIME:     mime,
		Data:     data,
	}
	s.logger.Info("capture: stopped",
		slog.Int("chunks", len(chunks)),
		slog.Int("bytes", size))
	return blob, nil
}

func (s *Session) clear() {
	s.mu.Lock()
	s.stream = nil
	s.collected = nil
	s.done = nil
	s.mu.Unlock()
}

func extForMIME(mime string) string {
	switch {
	case strings.HasPrefix(mime, "audio/webm"), strings.HasPrefix(mime, "video/webm"):
		return ".webm"
	case strings.HasPrefix(mime, "audio/mpeg"):
		return ".mp3"
	case strings.HasPrefix(mime, "audio/wav"):
		return ".wav"
	case strings.HasPrefix(mime, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(mime, "audio/mp4"):
		return ".m4a"
	default:
		return ".webm"
	}
}
