// Package voicecmd runs the voice-command round trip scoped to one
// note: record a spoken question, transcribe it, interpret it against
// the note's transcript and optionally speak the answer.
package voicecmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/ansuz/internal/analysis"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/capture"
	"github.com/starford/ansuz/internal/models"
)

// FallbackAnswer is returned for any failed round trip. The cause is
// logged, never surfaced: the feature is supplementary and must not
// put the user in an error state.
const FallbackAnswer = "could not process that command"

// Brain is the slice of the analysis engine the session needs.
type Brain interface {
	Transcribe(ctx context.Context, blob *models.AudioBlob) (string, error)
	Interpret(ctx context.Context, command, transcript string) (string, error)
}

// Session answers questions about a single note. One question may be
// in flight at a time; the answer replaces the previous exchange.
type Session struct {
	noteID     int64
	transcript string
	capture    *capture.Session
	brain      Brain
	speech     analysis.SpeechOutput // nil when speech is unavailable
	logger     *slog.Logger

	mu        sync.Mutex
	listening bool
	busy      bool
	exchange  *models.VoiceCommandExchange
}

// NewSession creates a session over the note's stored transcript.
// speech may be nil.
func NewSession(noteID int64, transcript string, cap *capture.Session, brain Brain, speech analysis.SpeechOutput, logger *slog.Logger) *Session {
	return &Session{
		noteID:     noteID,
		transcript: transcript,
		capture:    cap,
		brain:      brain,
		speech:     speech,
		logger:     logger,
	}
}

// Exchange returns the latest question/answer pair, or nil.
func (s *Session) Exchange() *models.VoiceCommandExchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange
}

func (s *Session) acquire(listening bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy || s.listening {
		return fmt.Errorf("voicecmd: a question is already in flight: %w", apperr.ErrConflict)
	}
	s.busy = true
	s.listening = listening
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.listening = false
	s.mu.Unlock()
}

// StartListening begins recording a spoken question from the
// microphone. Rejected while a previous question is still processing.
func (s *Session) StartListening(ctx context.Context) error {
	if err := s.acquire(true); err != nil {
		return err
	}
	if err := s.capture.Start(ctx, models.Microphone); err != nil {
		s.release()
		return err
	}
	return nil
}

// StopAndAsk finalizes the recording and runs
// transcribe → interpret → speak. Failures degrade to FallbackAnswer;
// the returned audio is nil when speech is unavailable or failed.
func (s *Session) StopAndAsk(ctx context.Context) (models.VoiceCommandExchange, []byte) {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return s.fail("", fmt.Errorf("voicecmd: not listening: %w", apperr.ErrInvalidState)), nil
	}
	s.listening = false
	s.mu.Unlock()
	defer s.release()

	blob, err := s.capture.Stop(ctx)
	if err != nil {
		return s.fail("", err), nil
	}
	if blob == nil {
		return s.fail("", fmt.Errorf("voicecmd: empty recording: %w", apperr.ErrCommandFailed)), nil
	}

	question, err := s.brain.Transcribe(ctx, blob)
	if err != nil {
		return s.fail("", err), nil
	}
	return s.answer(ctx, question)
}

// Ask runs the interpret half for an already-transcribed question.
func (s *Session) Ask(ctx context.Context, question string) (models.VoiceCommandExchange, []byte, error) {
	if err := s.acquire(false); err != nil {
		return models.VoiceCommandExchange{}, nil, err
	}
	defer s.release()
	ex, audio := s.answer(ctx, question)
	return ex, audio, nil
}

func (s *Session) answer(ctx context.Context, question string) (models.VoiceCommandExchange, []byte) {
	reply, err := s.brain.Interpret(ctx, question, s.transcript)
	if err != nil || reply == "" {
		if err == nil {
			err = fmt.Errorf("voicecmd: empty answer: %w", apperr.ErrCommandFailed)
		}
		return s.fail(question, err), nil
	}

	ex := s.store(question, reply)
	return ex, s.speak(ctx, reply)
}

// speak is best effort: absent or failing speech output is skipped
// silently.
func (s *Session) speak(ctx context.Context, text string) []byte {
	if s.speech == nil {
		return nil
	}
	audio, err := s.speech.Speak(ctx, text)
	if err != nil {
		s.logger.Debug("voicecmd: speech skipped",
			slog.Int64("note_id", s.noteID),
			slog.String("error", err.Error()))
		return nil
	}
	return audio
}

func (s *Session) fail(question string, err error) models.VoiceCommandExchange {
	s.logger.Warn("voicecmd: command failed",
		slog.Int64("note_id", s.noteID),
		slog.String("error", err.Error()))
	return s.store(question, FallbackAnswer)
}

func (s *Session) store(question, answer string) models.VoiceCommandExchange {
	ex := models.VoiceCommandExchange{Question: question, Answer: answer}
	s.mu.Lock()
	s.exchange = &ex
	s.mu.Unlock()
	return ex
}
