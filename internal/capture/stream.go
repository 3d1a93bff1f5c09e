// Package capture models live audio acquisition: streams with
// stoppable tracks, ordered chunk delivery, and a recording session
// that assembles chunks into one audio blob.
package capture

import "sync"

// TrackKind distinguishes the media tracks of a capture stream.
type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// Track is one media track of a capture stream. Tracks are stopped
// independently; stopping is idempotent.
type Track struct {
	Kind  TrackKind
	Label string

	mu   sync.Mutex
	live bool
	stop func()
}

// NewTrack creates a live track whose stop hook releases the
// underlying platform resource.
func NewTrack(kind TrackKind, label string, stop func()) *Track {
	return &Track{Kind: kind, Label: label, live: true, stop: stop}
}

// Stop releases the track. Safe to call more than once.
func (t *Track) Stop() {
	t.mu.Lock()
	wasLive := t.live
	t.live = false
	t.mu.Unlock()
	if wasLive && t.stop != nil {
		t.stop()
	}
}

// Live reports whether the track has not been stopped.
func (t *Track) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Stream is one live capture: a set of tracks plus an ordered chunk
// channel. The producer closes the chunk channel only after the final
// chunk has been delivered once a stop has been requested, so a reader
// that drains the channel to closure has seen every chunk.
type Stream struct {
	MIME string

	tracks      []*Track
	chunks      <-chan []byte
	requestStop func()
	stopOnce    sync.Once
}

// NewStream assembles a stream from its tracks, chunk source and stop
// hook. requestStop asks the producer to flush and close chunks; it
// must not stop the tracks itself.
func NewStream(mime string, tracks []*Track, chunks <-chan []byte, requestStop func()) *Stream {
	return &Stream{MIME: mime, tracks: tracks, chunks: chunks, requestStop: requestStop}
}

// Tracks returns the stream's tracks.
func (s *Stream) Tracks() []*Track { return s.tracks }

// Chunks returns the ordered chunk channel.
func (s *Stream) Chunks() <-chan []byte { return s.chunks }

// RequestStop asks the producer to flush pending chunks and close the
// chunk channel. Idempotent.
func (s *Stream) RequestStop() {
	s.stopOnce.Do(func() {
		if s.requestStop != nil {
			s.requestStop()
		}
	})
}

// StopTracks stops every track of the stream.
func (s *Stream) StopTracks() {
	for _, t := range s.tracks {
		t.Stop()
	}
}

// HasLiveAudio reports whether at least one audio track is live.
func (s *Stream) HasLiveAudio() bool {
	for _, t := range s.tracks {
		if t.Kind == TrackAudio && t.Live() {
			return true
		}
	}
	return false
}
