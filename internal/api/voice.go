package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/analysis"
	"github.com/starford/ansuz/internal/capture"
	"github.com/starford/ansuz/internal/notesvc"
	"github.com/starford/ansuz/internal/voicecmd"
)

// listenStartWait bounds how long the start route waits for a capture
// client to offer a microphone stream.
const listenStartWait = 30 * time.Second

// VoiceHandler drives the spoken question loop for a note: record a
// question over the capture gateway, answer it against the note's
// transcript and serve the synthesized reply back as audio. Sessions
// are per note and live for the process lifetime.
type VoiceHandler struct {
	svc      *notesvc.Service
	platform capture.Platform
	brain    voicecmd.Brain
	speech   analysis.SpeechOutput // may be nil
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*voicecmd.Session
	answers  map[int64][]byte // last synthesized answer per note
}

// NewVoiceHandler creates a VoiceHandler. speech may be nil.
func NewVoiceHandler(svc *notesvc.Service, platform capture.Platform, brain voicecmd.Brain, speech analysis.SpeechOutput, logger *slog.Logger) *VoiceHandler {
	return &VoiceHandler{
		svc:      svc,
		platform: platform,
		brain:    brain,
		speech:   speech,
		logger:   logger,
		sessions: make(map[int64]*voicecmd.Session),
		answers:  make(map[int64][]byte),
	}
}

// session returns the note's voice session, creating it on first use.
// Unknown notes surface as ErrNotFound from the service.
func (h *VoiceHandler) session(ctx context.Context, id int64) (*voicecmd.Session, error) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	h.mu.Unlock()
	if ok {
		return s, nil
	}

	note, _, err := h.svc.Note(ctx, id)
	if err != nil {
		return nil, err
	}
	s = voicecmd.NewSession(id, note.Transcript, capture.NewSession(h.platform, h.logger), h.brain, h.speech, h.logger)

	h.mu.Lock()
	if existing, ok := h.sessions[id]; ok {
		s = existing
	} else {
		h.sessions[id] = s
	}
	h.mu.Unlock()
	return s, nil
}

func (h *VoiceHandler) keepAnswer(id int64, audio []byte) {
	h.mu.Lock()
	if audio == nil {
		delete(h.answers, id)
	} else {
		h.answers[id] = audio
	}
	h.mu.Unlock()
}

// Start handles POST /notes/{id}/voice/start: begin recording a spoken
// question from the microphone.
func (h *VoiceHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	s, err := h.session(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	// Starting waits for a capture client to offer a microphone
	// stream; bound that wait so the request cannot hang forever.
	ctx, cancel := context.WithTimeout(r.Context(), listenStartWait)
	defer cancel()
	if err := s.StartListening(ctx); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "listening": true})
}

// Stop handles POST /notes/{id}/voice/stop: finalize the recording and
// answer the question. Pipeline failures degrade to the fixed fallback
// answer inside the session.
func (h *VoiceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	s, err := h.session(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	ex, audio := s.StopAndAsk(r.Context())
	h.keepAnswer(id, audio)
	writeJSON(w, http.StatusOK, VoiceExchangeResponse{
		Success:  true,
		Command:  ex.Question,
		Response: ex.Answer,
		HasAudio: audio != nil,
	})
}

// Ask handles POST /notes/{id}/voice/ask: the typed variant of the
// round trip, skipping the recording half.
func (h *VoiceHandler) Ask(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req VoiceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("command is required"))
		return
	}
	s, err := h.session(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	ex, audio, err := s.Ask(r.Context(), req.Command)
	if err != nil {
		writeAppError(w, err)
		return
	}
	h.keepAnswer(id, audio)
	writeJSON(w, http.StatusOK, VoiceExchangeResponse{
		Success:  true,
		Command:  ex.Question,
		Response: ex.Answer,
		HasAudio: audio != nil,
	})
}

// Answer handles GET /notes/{id}/voice/answer: the synthesized audio
// of the latest answer, or 404 when there is none.
func (h *VoiceHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	h.mu.Lock()
	audio := h.answers[id]
	h.mu.Unlock()
	if len(audio) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody("no spoken answer available"))
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write(audio)
}
