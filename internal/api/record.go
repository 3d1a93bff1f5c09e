package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/coder/websocket"

	"github.com/starford/ansuz/internal/capture"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/pipeline"
)

// RecordHandler exposes the recording pipeline: the WebSocket capture
// channel, the run status and the command surface. Commands go through
// the request bus; the orchestrator loop is their only consumer.
type RecordHandler struct {
	orch    *pipeline.Orchestrator
	bus     *pipeline.Bus
	gateway *capture.Gateway
	logger  *slog.Logger
}

// NewRecordHandler creates the recording surface.
func NewRecordHandler(orch *pipeline.Orchestrator, bus *pipeline.Bus, gateway *capture.Gateway, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{orch: orch, bus: bus, gateway: gateway, logger: logger}
}

// Stream handles GET /api/record/stream: the capture WebSocket. The
// client's hello declares its source; the connection then feeds chunks
// to whichever capture the orchestrator has pending.
func (h *RecordHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("capture websocket accept failed", slog.String("error", err.Error()))
		return
	}
	if err := h.gateway.Serve(r.Context(), conn, h.logger); err != nil {
		h.logger.Warn("capture stream ended with error", slog.String("error", err.Error()))
		conn.Close(websocket.StatusInternalError, "capture failed")
		return
	}
}

// Status handles GET /api/record/status.
func (h *RecordHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.Snapshot())
}

// recordRequest is the body of POST /api/record/request.
type recordRequest struct {
	Action string `json:"action"`
	Source string `json:"source,omitempty"`
}

// Request handles POST /api/record/request: the shared
// recording-requested signal any surface may emit.
func (h *RecordHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}

	var cmd pipeline.Command
	switch req.Action {
	case "start":
		kind, err := models.ParseSourceKind(req.Source)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("source must be mic or system"))
			return
		}
		cmd = pipeline.Command{Op: pipeline.OpStartCapture, Source: kind}
	case "stop":
		cmd = pipeline.Command{Op: pipeline.OpStopCapture}
	case "process":
		cmd = pipeline.Command{Op: pipeline.OpProcess}
	case "reset":
		cmd = pipeline.Command{Op: pipeline.OpReset}
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown action"))
		return
	}

	if err := h.bus.Post(cmd); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, h.orch.Snapshot())
}

// Select handles POST /api/record/select: attaches an uploaded audio
// file (multipart "file") as the pending input instead of a recording.
func (h *RecordHandler) Select(w http.ResponseWriter, r *http.Request) {
	blob, errMsg := readAudioFile(w, r, "file")
	if blob == nil {
		writeJSON(w, http.StatusBadRequest, errorBody(errMsg))
		return
	}
	if err := h.orch.SelectFile(blob); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.orch.Snapshot())
}

// Process handles POST /api/record/process.
func (h *RecordHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.post(w, pipeline.Command{Op: pipeline.OpProcess})
}

// Reset handles POST /api/record/reset.
func (h *RecordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.post(w, pipeline.Command{Op: pipeline.OpReset})
}

func (h *RecordHandler) post(w http.ResponseWriter, cmd pipeline.Command) {
	if err := h.bus.Post(cmd); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, h.orch.Snapshot())
}

// Preview handles GET /api/record/preview: plays back the pending
// audio before processing.
func (h *RecordHandler) Preview(w http.ResponseWriter, r *http.Request) {
	snap := h.orch.Snapshot()
	if snap.PreviewPath == "" {
		writeJSON(w, http.StatusNotFound, errorBody("no pending audio"))
		return
	}
	if _, err := os.Stat(snap.PreviewPath); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("no pending audio"))
		return
	}
	http.ServeFile(w, r, snap.PreviewPath)
}
