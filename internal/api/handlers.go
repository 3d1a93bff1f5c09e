package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/dashboard"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/notesvc"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/voicecmd"
)

const maxAudioBytes = 100 << 20 // 100 MB

// Handler holds API route handlers.
type Handler struct {
	svc    *notesvc.Service
	broker *sse.Broker // may be nil
	logger *slog.Logger
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *notesvc.Service, broker *sse.Broker, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, broker: broker, logger: logger}
}

func (h *Handler) publish(event string, data any) {
	if h.broker != nil {
		h.broker.Publish(sse.Event{Type: event, Data: data})
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Notes(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes, "total": len(notes)})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	note, tasks, err := h.svc.Note(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Note: *note, Tasks: tasks})
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	h.publish("note.deleted", map[string]int64{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		writeJSON(w, http.StatusBadRequest, errorBody("query must be at least 2 characters"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), query, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "query": query})
}

// Translate handles POST /api/notes/{id}/translate.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.TargetLanguage) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("target_language is required"))
		return
	}
	translated, err := h.svc.Translate(r.Context(), id, req.TargetLanguage)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TranslateResponse{TranslatedSummary: translated})
}

// Transcribe handles POST /api/transcribe: the upload-and-transcribe
// endpoint. It accepts one audio file under the multipart "file" field
// and runs the full pipeline. Failures answer with a {detail} body.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	blob, errMsg := readAudioFile(w, r, "file")
	if blob == nil {
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: errMsg})
		return
	}

	result, err := h.svc.ProcessMeeting(r.Context(), blob)
	if err != nil {
		h.logger.Error("transcribe failed",
			slog.String("filename", blob.Filename),
			slog.String("error", err.Error()))
		status := http.StatusInternalServerError
		if errors.Is(err, apperr.ErrUnsupportedMedia) {
			status = http.StatusUnsupportedMediaType
		}
		writeJSON(w, status, detailResponse{Detail: detailOf(err)})
		return
	}

	h.publish("note.created", map[string]any{"id": result.NoteID, "filename": result.Filename})
	writeJSON(w, http.StatusOK, result)
}

// detailOf strips the wrapped sentinel from an error chain, leaving
// the human-readable part.
func detailOf(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i > 0 {
		return msg[:i]
	}
	return msg
}

// readAudioFile pulls one uploaded file out of a multipart form. A nil
// blob means failure, with the reason in the second return.
func readAudioFile(w http.ResponseWriter, r *http.Request, field string) (*models.AudioBlob, string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		return nil, "file too large or invalid multipart"
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "No file uploaded"
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "failed to read file"
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		if byName := storage.MIMEForFilename(header.Filename); byName != "" {
			mime = byName
		}
	}
	return &models.AudioBlob{Filename: header.Filename, MIME: mime, Data: data}, ""
}

// ListTasks handles GET /api/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.Tasks(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// TasksByNote handles GET /api/tasks/note/{id}.
func (h *Handler) TasksByNote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	tasks, err := h.svc.TasksByNote(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid task id"))
		return
	}
	var req TaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	if req.Status != models.TaskPending && req.Status != models.TaskCompleted {
		writeJSON(w, http.StatusBadRequest, errorBody("status must be pending or completed"))
		return
	}
	task, err := h.svc.UpdateTaskStatus(r.Context(), id, req.Status)
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.publish("task.updated", task)
	writeJSON(w, http.StatusOK, task)
}

// Dashboard handles GET /api/tasks/dashboard?filter=.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	filter := dashboard.Filter(r.URL.Query().Get("filter"))
	switch filter {
	case "":
		filter = dashboard.FilterPending
	case dashboard.FilterPending, dashboard.FilterDueSoon, dashboard.FilterOverdue, dashboard.FilterCompleted:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown filter"))
		return
	}

	tasks, err := h.svc.Tasks(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	today := models.DateOf(time.Now())
	writeJSON(w, http.StatusOK, DashboardResponse{
		Filter: string(filter),
		Tasks:  dashboard.Sort(dashboard.Apply(tasks, filter, today), today),
		Counts: dashboard.Count(tasks, today),
	})
}

// VoiceCommand handles POST /api/voice-command. Pipeline failures
// degrade to the fixed fallback answer; only an unknown note is an
// error.
func (h *Handler) VoiceCommand(w http.ResponseWriter, r *http.Request) {
	var req VoiceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("command is required"))
		return
	}

	answer, err := h.svc.Command(r.Context(), req.NoteID, req.Command)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeAppError(w, err)
			return
		}
		h.logger.Warn("voice command degraded to fallback",
			slog.Int64("note_id", req.NoteID),
			slog.String("error", err.Error()))
		answer = voicecmd.FallbackAnswer
	}
	writeJSON(w, http.StatusOK, VoiceCommandResponse{
		Success:  true,
		Command:  req.Command,
		Response: answer,
	})
}
