// Package models defines the domain types for Ansuz.
package models

import (
	"fmt"
	"time"
)

// SourceKind identifies where a capture stream comes from.
type SourceKind int

const (
	// Microphone is an audio-only input device capture.
	Microphone SourceKind = iota
	// SystemAudio is a shared screen/tab capture from which only the
	// audio track is retained.
	SystemAudio
)

// String returns the wire name of the source kind.
func (k SourceKind) String() string {
	switch k {
	case Microphone:
		return "mic"
	case SystemAudio:
		return "system"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// ParseSourceKind maps a wire name back to a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch s {
	case "mic":
		return Microphone, nil
	case "system":
		return SystemAudio, nil
	default:
		return 0, fmt.Errorf("unknown source kind %q", s)
	}
}

// AudioBlob is one assembled recording or selected audio file.
type AudioBlob struct {
	Filename string
	MIME     string
	Data     []byte
}

// UploadInfo describes one stored audio file in the uploads directory.
type UploadInfo struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	MIME      string    `json:"type"`
	Checksum  string    `json:"-"`
	UpdatedAt time.Time `json:"uploadedAt"`
}

// Task statuses.
const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
)

// Sentiment is the overall tone detected in a meeting transcript.
// The set is closed; unknown values from the analysis service are
// dropped rather than stored.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentTense    Sentiment = "Tense"
	SentimentUrgent   Sentiment = "Urgent"
)

// ParseSentiment returns the matching Sentiment, or false when the
// value is outside the closed set.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentTense, SentimentUrgent:
		return Sentiment(s), true
	}
	return "", false
}

// Note stores one processed meeting recording with its AI analysis.
type Note struct {
	ID            int64      `json:"id"`
	Filename      string     `json:"filename"`
	RawTranscript string     `json:"raw_transcript,omitempty"`
	Transcript    string     `json:"transcript"`
	Summary       string     `json:"summary"`
	KeyPoints     []string   `json:"key_points"`
	Sentiment     *Sentiment `json:"sentiment,omitempty"`
	Language      *string    `json:"language,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Task is an action item extracted from a meeting note or entered
// manually. Deadline is date-only (YYYY-MM-DD); a zero Deadline means
// no deadline was mentioned.
type Task struct {
	ID           int64     `json:"id"`
	NoteID       *int64    `json:"note_id,omitempty"`
	NoteFilename *string   `json:"note_filename,omitempty"`
	Description  string    `json:"task"`
	Deadline     *Date     `json:"deadline,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Completed reports whether the task has been marked done.
func (t Task) Completed() bool { return t.Status == TaskCompleted }

// AnalysisResult is the immutable outcome of one processing run.
type AnalysisResult struct {
	NoteID        int64      `json:"note_id"`
	Filename      string     `json:"filename"`
	Transcript    string     `json:"transcript"`
	RawTranscript string     `json:"raw_transcript,omitempty"`
	Summary       string     `json:"summary"`
	KeyPoints     []string   `json:"key_points"`
	Sentiment     *Sentiment `json:"sentiment,omitempty"`
	Language      *string    `json:"language,omitempty"`
	Tasks         []Task     `json:"tasks"`
	CreatedAt     time.Time  `json:"created_at"`
}

// VoiceCommandExchange is one question/answer round trip about a note.
// A new invocation replaces the previous exchange.
type VoiceCommandExchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
