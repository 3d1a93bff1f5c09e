// Package notesvc coordinates the store, uploads directory and
// analysis engine behind the HTTP and MCP surfaces.
package notesvc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/analysis"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// Service runs the meeting pipeline server side and exposes the
// note/task queries.
type Service struct {
	store   store.Store
	uploads storage.Provider
	engine  analysis.Engine
	logger  *slog.Logger
}

// NewService wires a service over its collaborators.
func NewService(st store.Store, uploads storage.Provider, engine analysis.Engine, logger *slog.Logger) *Service {
	return &Service{store: st, uploads: uploads, engine: engine, logger: logger}
}

// ProcessMeeting takes an audio blob through the full pipeline: save
// to the uploads directory, transcribe, summarize, extract tasks,
// classify sentiment and language, persist. The returned result
// carries everything the pipeline produced. Sentiment and language
// failures degrade to absent values; transcription and summarization
// failures abort.
func (s *Service) ProcessMeeting(ctx context.Context, blob *models.AudioBlob) (*models.AnalysisResult, error) {
	info, err := s.uploads.Save(blob.Filename, blob.Data)
	if err != nil {
		return nil, fmt.Errorf("notesvc: save upload: %w", err)
	}

	raw, err := s.engine.Transcribe(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("notesvc: %v: %w", err, apperr.ErrAnalysisFailed)
	}
	// Keep the model's verbatim output alongside the cleaned text.
	transcript := strings.TrimSpace(raw)
	if transcript == "" {
		return nil, fmt.Errorf("notesvc: transcript is empty: %w", apperr.ErrAnalysisFailed)
	}

	summary, keyPoints, err := s.engine.Summarize(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("notesvc: %v: %w", err, apperr.ErrAnalysisFailed)
	}

	tasks, err := s.engine.ExtractTasks(ctx, transcript)
	if err != nil {
		s.logger.Warn("notesvc: task extraction failed", slog.String("error", err.Error()))
		tasks = nil
	}

	sentiment, err := s.engine.Sentiment(ctx, transcript)
	if err != nil {
		s.logger.Warn("notesvc: sentiment failed", slog.String("error", err.Error()))
		sentiment = nil
	}
	language, err := s.engine.Language(ctx, transcript)
	if err != nil {
		s.logger.Warn("notesvc: language detection failed", slog.String("error", err.Error()))
		language = nil
	}

	note := models.Note{
		Filename:      info.Filename,
		RawTranscript: raw,
		Transcript:    transcript,
		Summary:       summary,
		KeyPoints:     keyPoints,
		Sentiment:     sentiment,
		Language:      language,
		CreatedAt:     time.Now().UTC(),
	}
	saved, savedTasks, err := s.store.CreateNote(note, tasks)
	if err != nil {
		return nil, fmt.Errorf("notesvc: persist note: %w", err)
	}

	s.logger.Info("notesvc: meeting processed",
		slog.Int64("note_id", saved.ID),
		slog.String("filename", saved.Filename),
		slog.Int("tasks", len(savedTasks)))

	return &models.AnalysisResult{
		NoteID:        saved.ID,
		Filename:      saved.Filename,
		Transcript:    saved.Transcript,
		RawTranscript: saved.RawTranscript,
		Summary:       saved.Summary,
		KeyPoints:     saved.KeyPoints,
		Sentiment:     saved.Sentiment,
		Language:      saved.Language,
		Tasks:         savedTasks,
		CreatedAt:     saved.CreatedAt,
	}, nil
}

// Translate renders a note's summary in the target language.
func (s *Service) Translate(ctx context.Context, noteID int64, targetLanguage string) (string, error) {
	note, err := s.store.GetNote(noteID)
	if err != nil {
		return "", err
	}
	translated, err := s.engine.Translate(ctx, note.Summary, targetLanguage)
	if err != nil {
		return "", fmt.Errorf("notesvc: %v: %w", err, apperr.ErrAnalysisFailed)
	}
	return translated, nil
}

// Command answers a question against a note's stored transcript. No
// re-transcription happens here; the audio was already processed.
func (s *Service) Command(ctx context.Context, noteID int64, command string) (string, error) {
	note, err := s.store.GetNote(noteID)
	if err != nil {
		return "", err
	}
	answer, err := s.engine.Interpret(ctx, command, note.Transcript)
	if err != nil {
		return "", fmt.Errorf("notesvc: %v: %w", err, apperr.ErrCommandFailed)
	}
	return answer, nil
}

// Notes returns the note listing.
func (s *Service) Notes(context.Context) ([]models.Note, error) {
	return s.store.ListNotes()
}

// Note returns one note with its tasks.
func (s *Service) Note(_ context.Context, id int64) (*models.Note, []models.Task, error) {
	note, err := s.store.GetNote(id)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.store.TasksByNote(id)
	if err != nil {
		return nil, nil, err
	}
	return note, tasks, nil
}

// DeleteNote removes a note and its tasks.
func (s *Service) DeleteNote(_ context.Context, id int64) error {
	return s.store.DeleteNote(id)
}

// Search runs a full-text search over the notes.
func (s *Service) Search(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	return s.store.Search(query, limit)
}

// Tasks returns every task.
func (s *Service) Tasks(context.Context) ([]models.Task, error) {
	return s.store.ListTasks()
}

// TasksByNote returns the tasks of one note.
func (s *Service) TasksByNote(_ context.Context, noteID int64) ([]models.Task, error) {
	return s.store.TasksByNote(noteID)
}

// UpdateTaskStatus toggles a task between pending and completed.
func (s *Service) UpdateTaskStatus(_ context.Context, id int64, status string) (*models.Task, error) {
	return s.store.UpdateTaskStatus(id, status)
}
