package notesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEngine struct {
	transcript    string
	transcribeErr error
	summary       string
	keyPoints     []string
	summarizeErr  error
	tasks         []models.Task
	tasksErr      error
	sentiment     *models.Sentiment
	sentimentErr  error
	language      *string
	translation   string
	answer        string
}

func (e *fakeEngine) Transcribe(ctx context.Context, blob *models.AudioBlob) (string, error) {
	return e.transcript, e.transcribeErr
}

func (e *fakeEngine) Summarize(ctx context.Context, transcript string) (string, []string, error) {
	return e.summary, e.keyPoints, e.summarizeErr
}

func (e *fakeEngine) ExtractTasks(ctx context.Context, transcript string) ([]models.Task, error) {
	return e.tasks, e.tasksErr
}

func (e *fakeEngine) Sentiment(ctx context.Context, transcript string) (*models.Sentiment, error) {
	return e.sentiment, e.sentimentErr
}

func (e *fakeEngine) Language(ctx context.Context, transcript string) (*string, error) {
	return e.language, nil
}

func (e *fakeEngine) Translate(ctx context.Context, summary, target string) (string, error) {
	return e.translation, nil
}

func (e *fakeEngine) Interpret(ctx context.Context, command, transcript string) (string, error) {
	return e.answer, nil
}

func newTestService(t *testing.T, engine *fakeEngine) (*Service, store.Store) {
	t.Helper()
	st := store.NewFixture(time.Now().UTC())
	uploads, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewService(st, uploads, engine, testLogger()), st
}

func testBlob() *models.AudioBlob {
	return &models.AudioBlob{Filename: "standup.webm", MIME: "audio/webm", Data: []byte("audio")}
}

func TestProcessMeeting(t *testing.T) {
	sentiment := models.SentimentPositive
	lang := "English"
	deadline, _ := models.ParseDate("2026-03-05")
	engine := &fakeEngine{
		transcript: "we shipped it",
		summary:    "Release shipped.",
		keyPoints:  []string{"shipped"},
		tasks:      []models.Task{{Description: "Announce", Deadline: &deadline, Status: models.TaskPending}},
		sentiment:  &sentiment,
		language:   &lang,
	}
	svc, st := newTestService(t, engine)

	result, err := svc.ProcessMeeting(context.Background(), testBlob())
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}
	if result.NoteID == 0 {
		t.Error("no note id assigned")
	}
	if result.Transcript != "we shipped it" || result.Summary != "Release shipped." {
		t.Errorf("result = %+v", result)
	}
	if len(result.Tasks) != 1 || result.Tasks[0].ID == 0 {
		t.Errorf("tasks = %+v, want 1 persisted task", result.Tasks)
	}
	if result.Sentiment == nil || *result.Sentiment != models.SentimentPositive {
		t.Errorf("sentiment = %v", result.Sentiment)
	}

	// Persisted and queryable.
	note, err := st.GetNote(result.NoteID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if note.Summary != "Release shipped." {
		t.Errorf("stored summary = %q", note.Summary)
	}
}

func TestProcessMeetingKeepsRawTranscript(t *testing.T) {
	engine := &fakeEngine{
		transcript: "  um, so we shipped it \n",
		summary:    "Shipped.",
		keyPoints:  []string{},
	}
	svc, st := newTestService(t, engine)

	result, err := svc.ProcessMeeting(context.Background(), testBlob())
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}
	if result.RawTranscript != "  um, so we shipped it \n" {
		t.Errorf("raw transcript = %q, want the engine output verbatim", result.RawTranscript)
	}
	if result.Transcript != "um, so we shipped it" {
		t.Errorf("transcript = %q, want trimmed text", result.Transcript)
	}

	note, err := st.GetNote(result.NoteID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if note.RawTranscript != result.RawTranscript || note.Transcript != result.Transcript {
		t.Errorf("stored note = %q / %q", note.RawTranscript, note.Transcript)
	}
}

func TestProcessMeetingTranscribeFailureAborts(t *testing.T) {
	engine := &fakeEngine{transcribeErr: fmt.Errorf("whisper down")}
	svc, _ := newTestService(t, engine)
	if _, err := svc.ProcessMeeting(context.Background(), testBlob()); !errors.Is(err, apperr.ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}
}

func TestProcessMeetingEmptyTranscriptAborts(t *testing.T) {
	engine := &fakeEngine{transcript: "   "}
	svc, _ := newTestService(t, engine)
	if _, err := svc.ProcessMeeting(context.Background(), testBlob()); !errors.Is(err, apperr.ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}
}

func TestProcessMeetingDegradesOnAuxiliaryFailures(t *testing.T) {
	engine := &fakeEngine{
		transcript:   "text",
		summary:      "S",
		keyPoints:    []string{},
		tasksErr:     fmt.Errorf("no tasks"),
		sentimentErr: fmt.Errorf("no sentiment"),
	}
	svc, _ := newTestService(t, engine)
	result, err := svc.ProcessMeeting(context.Background(), testBlob())
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}
	if len(result.Tasks) != 0 {
		t.Errorf("tasks = %v, want none", result.Tasks)
	}
	if result.Sentiment != nil {
		t.Errorf("sentiment = %v, want nil", result.Sentiment)
	}
}

func TestProcessMeetingRejectsNonAudioUpload(t *testing.T) {
	engine := &fakeEngine{transcript: "x", summary: "s"}
	svc, _ := newTestService(t, engine)
	blob := &models.AudioBlob{Filename: "notes.txt", MIME: "text/plain", Data: []byte("x")}
	if _, err := svc.ProcessMeeting(context.Background(), blob); !errors.Is(err, apperr.ErrUnsupportedMedia) {
		t.Fatalf("err = %v, want ErrUnsupportedMedia", err)
	}
}

func TestTranslateUnknownNote(t *testing.T) {
	svc, _ := newTestService(t, &fakeEngine{translation: "Hallo"})
	if _, err := svc.Translate(context.Background(), 9999, "German"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCommandUsesStoredTranscript(t *testing.T) {
	engine := &fakeEngine{answer: "it was approved"}
	svc, st := newTestService(t, engine)

	notes, err := st.ListNotes()
	if err != nil || len(notes) == 0 {
		t.Fatalf("seeded notes missing: %v", err)
	}
	answer, err := svc.Command(context.Background(), notes[0].ID, "was it approved?")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if answer != "it was approved" {
		t.Errorf("answer = %q", answer)
	}
}
