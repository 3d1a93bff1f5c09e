package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/analysis"
	"github.com/starford/ansuz/internal/capture"
	"github.com/starford/ansuz/internal/notesvc"
	"github.com/starford/ansuz/internal/pipeline"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/voicecmd"
)

// RouterDeps collects everything the API surface needs. The recording
// fields may be nil when the pipeline is disabled; the recording routes
// are then not mounted.
type RouterDeps struct {
	Service *notesvc.Service
	Uploads storage.Provider
	Logger  *slog.Logger

	Orchestrator *pipeline.Orchestrator
	Bus          *pipeline.Bus
	Gateway      *capture.Gateway

	// VoiceBrain and Capture feed the per-note spoken voice sessions;
	// both must be set for the voice routes to mount. Speech may be nil
	// when synthesis is unavailable.
	VoiceBrain voicecmd.Brain
	Capture    capture.Platform
	Speech     analysis.SpeechOutput

	// Broker, if non-nil, feeds handler event publishes and is mounted
	// at GET /events inside the auth group.
	Broker *sse.Broker
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(deps RouterDeps, authEnabled bool, token string) chi.Router {
	h := NewHandler(deps.Service, deps.Broker, deps.Logger)
	mh := NewMeetingHandler(deps.Uploads, deps.Logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Meeting audio files.
	r.Post("/meetings/upload", mh.Upload)
	r.Get("/meetings", mh.List)
	r.Get("/meetings/{filename}", mh.ServeFile)
	r.Delete("/meetings/{filename}", mh.Delete)

	// Transcription pipeline entrypoint.
	r.Post("/transcribe", h.Transcribe)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{id}/translate", h.Translate)

	// Search.
	r.Get("/search", h.Search)

	// Tasks and dashboard. The dashboard route must be registered on a
	// literal segment so chi does not swallow it as a task id.
	r.Get("/tasks", h.ListTasks)
	r.Get("/tasks/dashboard", h.Dashboard)
	r.Get("/tasks/note/{id}", h.TasksByNote)
	r.Patch("/tasks/{id}", h.UpdateTask)

	// Voice command.
	r.Post("/voice-command", h.VoiceCommand)

	// Spoken voice sessions ride the same capture platform as recording.
	if deps.Capture != nil && deps.VoiceBrain != nil {
		vh := NewVoiceHandler(deps.Service, deps.Capture, deps.VoiceBrain, deps.Speech, deps.Logger)
		r.Post("/notes/{id}/voice/start", vh.Start)
		r.Post("/notes/{id}/voice/stop", vh.Stop)
		r.Post("/notes/{id}/voice/ask", vh.Ask)
		r.Get("/notes/{id}/voice/answer", vh.Answer)
	}

	// Recording pipeline.
	if deps.Orchestrator != nil && deps.Bus != nil && deps.Gateway != nil {
		rh := NewRecordHandler(deps.Orchestrator, deps.Bus, deps.Gateway, deps.Logger)
		r.Get("/record/stream", rh.Stream)
		r.Get("/record/status", rh.Status)
		r.Get("/record/preview", rh.Preview)
		r.Post("/record/select", rh.Select)
		r.Post("/record/request", rh.Request)
		r.Post("/record/process", rh.Process)
		r.Post("/record/reset", rh.Reset)
	}

	// SSE endpoint (protected by same auth middleware).
	if deps.Broker != nil {
		r.Get("/events", deps.Broker.ServeHTTP)
	}

	return r
}
