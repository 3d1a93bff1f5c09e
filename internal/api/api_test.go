package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/analysis"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/capture"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/notesvc"
	"github.com/starford/ansuz/internal/pipeline"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/voicecmd"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine answers analysis calls with canned values so the API can
// be exercised without a model behind it.
type fakeEngine struct {
	transcript    string
	transcribeErr error
	interpret     string
	interpretErr  error
}

func (f *fakeEngine) Transcribe(ctx context.Context, blob *models.AudioBlob) (string, error) {
	return f.transcript, f.transcribeErr
}

func (f *fakeEngine) Summarize(ctx context.Context, transcript string) (string, []string, error) {
	return "Team aligned on the release plan.", []string{"ship on Friday"}, nil
}

func (f *fakeEngine) ExtractTasks(ctx context.Context, transcript string) ([]models.Task, error) {
	return []models.Task{{Description: "Send release notes", Status: models.TaskPending}}, nil
}

func (f *fakeEngine) Sentiment(ctx context.Context, transcript string) (*models.Sentiment, error) {
	s := models.SentimentPositive
	return &s, nil
}

func (f *fakeEngine) Language(ctx context.Context, transcript string) (*string, error) {
	lang := "English"
	return &lang, nil
}

func (f *fakeEngine) Translate(ctx context.Context, summary, targetLanguage string) (string, error) {
	return "[" + targetLanguage + "] " + summary, nil
}

func (f *fakeEngine) Interpret(ctx context.Context, command, transcript string) (string, error) {
	return f.interpret, f.interpretErr
}

// testEnv wires the fixture store, a temp uploads dir and the fake
// engine into a router. authToken="" disables auth.
func testEnv(t *testing.T, engine *fakeEngine, authToken string) http.Handler {
	t.Helper()

	uploads, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	st := store.NewFixture(time.Now())
	svc := notesvc.NewService(st, uploads, engine, testLogger())

	deps := RouterDeps{Service: svc, Uploads: uploads, Logger: testLogger()}
	return NewRouter(deps, authToken != "", authToken)
}

func defaultEngine() *fakeEngine {
	return &fakeEngine{
		transcript: "We agreed to ship the release on Friday.",
		interpret:  "The release ships on Friday.",
	}
}

// audioForm builds a multipart body with one file part.
func audioForm(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestUploadMissingFile(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodPost, "/meetings/upload", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decode[UploadResponse](t, w)
	if resp.Success {
		t.Error("success = true, want false")
	}
	if resp.Message != "No file uploaded" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestUploadListServeDelete(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	body, ctype := audioForm(t, "audio", "standup notes.webm", []byte("webm-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/meetings/upload", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	up := decode[UploadResponse](t, w)
	if !up.Success || up.Data == nil {
		t.Fatalf("upload response = %+v", up)
	}
	if up.Data.MIME != "audio/webm" {
		t.Errorf("type = %q, want audio/webm", up.Data.MIME)
	}

	w = doJSON(t, router, http.MethodGet, "/meetings", nil)
	list := decode[MeetingsResponse](t, w)
	if !list.Success || len(list.Files) != 1 {
		t.Fatalf("meetings = %+v", list)
	}
	name := list.Files[0]

	req = httptest.NewRequest(http.MethodGet, "/meetings/"+name, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("serve status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "audio/webm" {
		t.Errorf("content-type = %q", got)
	}
	if w.Body.String() != "webm-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/meetings/"+name, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/meetings/"+name, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("serve after delete = %d, want 404", w.Code)
	}
}

func TestTranscribeRunsPipeline(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	body, ctype := audioForm(t, "file", "retro.mp3", []byte("mp3-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	result := decode[models.AnalysisResult](t, w)
	if result.Transcript != "We agreed to ship the release on Friday." {
		t.Errorf("transcript = %q", result.Transcript)
	}
	if result.Summary == "" || len(result.Tasks) != 1 {
		t.Errorf("result = %+v", result)
	}

	// The note must be persisted alongside the two seeded ones.
	w = doJSON(t, router, http.MethodGet, "/notes", nil)
	listing := decode[map[string]json.RawMessage](t, w)
	var total int
	if err := json.Unmarshal(listing["total"], &total); err != nil || total != 3 {
		t.Errorf("total = %d (err %v), want 3", total, err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodPost, "/transcribe", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[detailResponse](t, w)
	if resp.Detail != "No file uploaded" {
		t.Errorf("detail = %q", resp.Detail)
	}
}

func TestTranscribeEngineFailure(t *testing.T) {
	engine := defaultEngine()
	engine.transcribeErr = errors.New("model overloaded")
	router := testEnv(t, engine, "")

	body, ctype := audioForm(t, "file", "retro.mp3", []byte("mp3-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decode[detailResponse](t, w)
	if resp.Detail == "" {
		t.Error("detail is empty")
	}
}

func TestTranscribeRejectsNonAudio(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	body, ctype := audioForm(t, "file", "diagram.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", w.Code)
	}
}

func TestGetNoteWithTasks(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodGet, "/notes/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	note := decode[NoteResponse](t, w)
	if note.ID != 1 {
		t.Errorf("id = %d", note.ID)
	}
	if len(note.Tasks) != 3 {
		t.Errorf("tasks = %d, want 3", len(note.Tasks))
	}

	w = doJSON(t, router, http.MethodGet, "/notes/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/notes/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestDeleteNoteCascades(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodDelete, "/notes/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/notes/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/tasks/note/1", nil)
	tasks := decode[map[string][]models.Task](t, w)
	if len(tasks["tasks"]) != 0 {
		t.Errorf("orphan tasks = %d, want 0", len(tasks["tasks"]))
	}
}

func TestSearch(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodGet, "/search?q=a", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short query status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/search?q=roadmap", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[map[string]json.RawMessage](t, w)
	var results []json.RawMessage
	if err := json.Unmarshal(resp["results"], &results); err != nil || len(results) == 0 {
		t.Errorf("results = %s (err %v)", resp["results"], err)
	}
}

func TestTranslate(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodPost, "/notes/1/translate", TranslateRequest{TargetLanguage: "French"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[TranslateResponse](t, w)
	if resp.TranslatedSummary == "" {
		t.Error("translated_summary is empty")
	}

	w = doJSON(t, router, http.MethodPost, "/notes/1/translate", TranslateRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing language status = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/notes/999/translate", TranslateRequest{TargetLanguage: "French"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", w.Code)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodPatch, "/tasks/1", TaskStatusRequest{Status: models.TaskCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	task := decode[models.Task](t, w)
	if task.Status != models.TaskCompleted {
		t.Errorf("task status = %q", task.Status)
	}

	w = doJSON(t, router, http.MethodPatch, "/tasks/1", TaskStatusRequest{Status: "done"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status code = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPatch, "/tasks/999", TaskStatusRequest{Status: models.TaskPending})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing task code = %d, want 404", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodGet, "/tasks/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[DashboardResponse](t, w)
	if resp.Filter != "pending" {
		t.Errorf("default filter = %q", resp.Filter)
	}
	if len(resp.Tasks) != 5 {
		t.Errorf("pending tasks = %d, want 5", len(resp.Tasks))
	}
	if resp.Counts.Overdue != 1 {
		t.Errorf("overdue count = %d, want 1", resp.Counts.Overdue)
	}

	w = doJSON(t, router, http.MethodGet, "/tasks/dashboard?filter=overdue", nil)
	resp = decode[DashboardResponse](t, w)
	if len(resp.Tasks) != 1 {
		t.Errorf("overdue tasks = %d, want 1", len(resp.Tasks))
	}

	w = doJSON(t, router, http.MethodGet, "/tasks/dashboard?filter=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown filter status = %d, want 400", w.Code)
	}
}

func TestVoiceCommand(t *testing.T) {
	router := testEnv(t, defaultEngine(), "")

	w := doJSON(t, router, http.MethodPost, "/voice-command", VoiceCommandRequest{Command: "When do we ship?", NoteID: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[VoiceCommandResponse](t, w)
	if !resp.Success || resp.Response != "The release ships on Friday." {
		t.Errorf("response = %+v", resp)
	}
	if resp.Command != "When do we ship?" {
		t.Errorf("command echo = %q", resp.Command)
	}

	w = doJSON(t, router, http.MethodPost, "/voice-command", VoiceCommandRequest{NoteID: 1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty command status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/voice-command", VoiceCommandRequest{Command: "anything", NoteID: 999})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", w.Code)
	}
}

func TestVoiceCommandDegradesToFallback(t *testing.T) {
	engine := defaultEngine()
	engine.interpretErr = errors.New("model unavailable")
	router := testEnv(t, engine, "")

	w := doJSON(t, router, http.MethodPost, "/voice-command", VoiceCommandRequest{Command: "When do we ship?", NoteID: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[VoiceCommandResponse](t, w)
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.Response != voicecmd.FallbackAnswer {
		t.Errorf("response = %q, want fallback", resp.Response)
	}
}

// micPlatform offers one pre-built microphone stream.
type micPlatform struct{ stream *capture.Stream }

func (p *micPlatform) OpenMicrophone(ctx context.Context) (*capture.Stream, error) {
	return p.stream, nil
}

func (p *micPlatform) OpenDisplay(ctx context.Context) (*capture.Stream, error) {
	return nil, apperr.ErrSourceUnavailable
}

// micStream builds a stream with the payload preloaded; a stop request
// flushes it by closing the chunk channel.
func micStream(payload []byte) *capture.Stream {
	chunks := make(chan []byte, 1)
	chunks <- payload
	track := capture.NewTrack(capture.TrackAudio, "mic", func() {})
	return capture.NewStream("audio/webm", []*capture.Track{track}, chunks, func() { close(chunks) })
}

type fakeSpeech struct {
	audio []byte
	err   error
}

func (f *fakeSpeech) Speak(ctx context.Context, text string) ([]byte, error) {
	return f.audio, f.err
}

// voiceEnv wires the voice session routes over a canned microphone
// platform. speech may be nil.
func voiceEnv(t *testing.T, engine *fakeEngine, platform capture.Platform, speech analysis.SpeechOutput) http.Handler {
	t.Helper()

	uploads, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	svc := notesvc.NewService(store.NewFixture(time.Now()), uploads, engine, testLogger())

	deps := RouterDeps{
		Service:    svc,
		Uploads:    uploads,
		Logger:     testLogger(),
		VoiceBrain: engine,
		Capture:    platform,
		Speech:     speech,
	}
	return NewRouter(deps, false, "")
}

func TestVoiceSessionSpokenRoundTrip(t *testing.T) {
	engine := defaultEngine()
	engine.transcript = "When do we ship?"
	platform := &micPlatform{stream: micStream([]byte("webm-question"))}
	router := voiceEnv(t, engine, platform, &fakeSpeech{audio: []byte("tts-bytes")})

	w := doJSON(t, router, http.MethodPost, "/notes/1/voice/start", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/notes/1/voice/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[VoiceExchangeResponse](t, w)
	if resp.Command != "When do we ship?" {
		t.Errorf("command = %q, want the transcribed question", resp.Command)
	}
	if resp.Response != "The release ships on Friday." {
		t.Errorf("response = %q", resp.Response)
	}
	if !resp.HasAudio {
		t.Error("has_audio = false, want true")
	}

	w = doJSON(t, router, http.MethodGet, "/notes/1/voice/answer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("answer status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("content-type = %q", got)
	}
	if w.Body.String() != "tts-bytes" {
		t.Errorf("answer body = %q", w.Body.String())
	}
}

func TestVoiceSessionStopWithoutListening(t *testing.T) {
	router := voiceEnv(t, defaultEngine(), &micPlatform{}, nil)

	w := doJSON(t, router, http.MethodPost, "/notes/1/voice/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d", w.Code)
	}
	resp := decode[VoiceExchangeResponse](t, w)
	if resp.Response != voicecmd.FallbackAnswer {
		t.Errorf("response = %q, want fallback", resp.Response)
	}
	if resp.HasAudio {
		t.Error("has_audio = true, want false")
	}
}

func TestVoiceSessionAsk(t *testing.T) {
	router := voiceEnv(t, defaultEngine(), &micPlatform{}, nil)

	w := doJSON(t, router, http.MethodPost, "/notes/1/voice/ask", VoiceCommandRequest{Command: "When do we ship?"})
	if w.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[VoiceExchangeResponse](t, w)
	if resp.Response != "The release ships on Friday." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.HasAudio {
		t.Error("has_audio = true without speech output")
	}

	// No synthesized answer to fetch.
	w = doJSON(t, router, http.MethodGet, "/notes/1/voice/answer", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("answer status = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/notes/999/voice/ask", VoiceCommandRequest{Command: "anything"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown note status = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/notes/1/voice/ask", VoiceCommandRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty command status = %d, want 400", w.Code)
	}
}

// recordEnv wires the recording pipeline into the router. The bus has
// no consumer; posts are only checked for acceptance.
func recordEnv(t *testing.T) (http.Handler, *pipeline.Orchestrator) {
	t.Helper()

	uploads, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	svc := notesvc.NewService(store.NewFixture(time.Now()), uploads, defaultEngine(), testLogger())

	gateway := capture.NewGateway()
	session := capture.NewSession(gateway, testLogger())
	orch := pipeline.NewOrchestrator(session, nil, testLogger(), nil)

	deps := RouterDeps{
		Service:      svc,
		Uploads:      uploads,
		Logger:       testLogger(),
		Orchestrator: orch,
		Bus:          pipeline.NewBus(),
		Gateway:      gateway,
	}
	return NewRouter(deps, false, ""), orch
}

func TestRecordStatusAndSelect(t *testing.T) {
	router, _ := recordEnv(t)

	w := doJSON(t, router, http.MethodGet, "/record/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d", w.Code)
	}
	snap := decode[pipeline.Snapshot](t, w)
	if snap.State != "idle" {
		t.Errorf("state = %q, want idle", snap.State)
	}

	w = doJSON(t, router, http.MethodGet, "/record/preview", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("preview without audio = %d, want 404", w.Code)
	}

	body, ctype := audioForm(t, "file", "offline.mp3", []byte("mp3-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/record/select", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("select code = %d, body = %s", rec.Code, rec.Body.String())
	}
	snap = decode[pipeline.Snapshot](t, rec)
	if snap.State != "ready" || snap.Filename != "offline.mp3" {
		t.Errorf("after select: %+v", snap)
	}

	w = doJSON(t, router, http.MethodGet, "/record/preview", nil)
	if w.Code != http.StatusOK {
		t.Errorf("preview after select = %d, want 200", w.Code)
	}
}

func TestRecordSelectRejectsNonAudio(t *testing.T) {
	router, orch := recordEnv(t)

	body, ctype := audioForm(t, "file", "diagram.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/record/select", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("select code = %d, want 415", rec.Code)
	}
	if got := orch.Snapshot().State; got != "idle" {
		t.Errorf("state = %q, want idle", got)
	}
}

func TestRecordRequestPostsToBus(t *testing.T) {
	router, _ := recordEnv(t)

	w := doJSON(t, router, http.MethodPost, "/record/request", map[string]string{"action": "process"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("request code = %d, want 202", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/record/request", map[string]string{"action": "start", "source": "laser"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad source code = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/record/request", map[string]string{"action": "jump"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad action code = %d, want 400", w.Code)
	}
}

func TestAuthTokenMode(t *testing.T) {
	router := testEnv(t, defaultEngine(), "sekrit")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", w.Code)
	}
}
