package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/analysis"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/capture"
	"github.com/starford/ansuz/internal/models"
)

// Processor turns an audio blob into an analysis result with one
// network round trip. *analysis.Client satisfies it.
type Processor interface {
	Process(ctx context.Context, blob *models.AudioBlob, onPhase analysis.PhaseFunc) (*models.AnalysisResult, error)
}

// Snapshot is a read-only copy of the current run.
type Snapshot struct {
	RunID        string                 `json:"run_id"`
	State        string                 `json:"state"`
	Filename     string                 `json:"filename,omitempty"`
	PreviewPath  string                 `json:"-"`
	Result       *models.AnalysisResult `json:"result,omitempty"`
	ErrorMessage string                 `json:"error,omitempty"`
}

// Observer receives a snapshot after every state change.
type Observer func(Snapshot)

// Orchestrator owns the single live processing run. All transitions
// happen under its mutex; the analysis round trip runs outside the
// lock and re-checks the run id before applying its outcome, so a
// response that arrives after a Reset is discarded.
type Orchestrator struct {
	session   *capture.Session
	processor Processor
	logger    *slog.Logger
	observer  Observer

	mu      sync.Mutex
	runID   string
	state   State
	audio   *models.AudioBlob
	preview string
	result  *models.AnalysisResult
	errMsg  string
}

// NewOrchestrator creates an idle orchestrator. observer may be nil.
func NewOrchestrator(session *capture.Session, processor Processor, logger *slog.Logger, observer Observer) *Orchestrator {
	return &Orchestrator{
		session:   session,
		processor: processor,
		logger:    logger,
		observer:  observer,
		runID:     uuid.NewString(),
		state:     Idle,
	}
}

// Snapshot returns a copy of the current run.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		RunID:        o.runID,
		State:        o.state.String(),
		PreviewPath:  o.preview,
		Result:       o.result,
		ErrorMessage: o.errMsg,
	}
	if o.audio != nil {
		snap.Filename = o.audio.Filename
	}
	return snap
}

// publishLocked notifies the observer. Called with the mutex held; the
// observer must not call back into the orchestrator.
func (o *Orchestrator) publishLocked() {
	if o.observer != nil {
		o.observer(o.snapshotLocked())
	}
}

// StartCapture begins a recording. Valid only from Idle.
func (o *Orchestrator) StartCapture(ctx context.Context, kind models.SourceKind) error {
	o.mu.Lock()
	switch {
	case o.state == Recording:
		o.mu.Unlock()
		return apperr.ErrAlreadyRecording
	case o.state != Idle:
		o.mu.Unlock()
		return fmt.Errorf("pipeline: cannot start capture in state %s: %w", o.state, apperr.ErrInvalidState)
	}
	o.state = Recording
	o.publishLocked()
	o.mu.Unlock()

	if err := o.session.Start(ctx, kind); err != nil {
		o.mu.Lock()
		if o.state == Recording {
			o.state = Idle
			o.publishLocked()
		}
		o.mu.Unlock()
		return err
	}
	return nil
}

// StopCapture finalizes the recording. A capture that produced no
// audio is discarded and the run returns to Idle; otherwise the blob
// becomes the run's input and the state moves to ReadyToProcess.
func (o *Orchestrator) StopCapture(ctx context.Context) error {
	o.mu.Lock()
	if o.state != Recording {
		o.mu.Unlock()
		return fmt.Errorf("pipeline: cannot stop capture in state %s: %w", o.state, apperr.ErrInvalidState)
	}
	o.mu.Unlock()

	blob, err := o.session.Stop(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.state = Idle
		o.publishLocked()
		return err
	}
	if blob == nil {
		o.logger.Info("pipeline: empty capture discarded")
		o.state = Idle
		o.publishLocked()
		return nil
	}
	o.attachLocked(blob)
	return nil
}

// SelectFile makes an uploaded file the run's input. Rejected while
// recording; non-audio files fail with ErrUnsupportedMedia and leave
// the state unchanged.
func (o *Orchestrator) SelectFile(blob *models.AudioBlob) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Recording {
		return fmt.Errorf("pipeline: cannot select a file while recording: %w", apperr.ErrInvalidState)
	}
	if o.state.processing() {
		return fmt.Errorf("pipeline: a run is being processed: %w", apperr.ErrInvalidState)
	}
	if !strings.HasPrefix(blob.MIME, "audio/") {
		return fmt.Errorf("pipeline: %s is not audio: %w", blob.MIME, apperr.ErrUnsupportedMedia)
	}
	o.attachLocked(blob)
	return nil
}

// attachLocked installs a new input blob, superseding any previous
// preview file.
func (o *Orchestrator) attachLocked(blob *models.AudioBlob) {
	o.releasePreviewLocked()
	o.audio = blob
	o.result = nil
	o.errMsg = ""
	o.preview = o.writePreview(blob)
	o.state = ReadyToProcess
	o.publishLocked()
}

// writePreview stores the audio in a temp file so the UI can play it
// back before processing. Best effort.
func (o *Orchestrator) writePreview(blob *models.AudioBlob) string {
	f, err := os.CreateTemp("", "ansuz-preview-*"+filepath.Ext(blob.Filename))
	if err != nil {
		o.logger.Warn("pipeline: preview create failed", slog.String("error", err.Error()))
		return ""
	}
	if _, err := f.Write(blob.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		o.logger.Warn("pipeline: preview write failed", slog.String("error", err.Error()))
		return ""
	}
	f.Close()
	return f.Name()
}

func (o *Orchestrator) releasePreviewLocked() {
	if o.preview != "" {
		_ = os.Remove(o.preview)
		o.preview = ""
	}
}

// Process runs the analysis round trip. Valid only from
// ReadyToProcess; the state moves to Uploading under the mutex before
// any I/O, so the second of two immediate calls fails and exactly one
// request goes out. Phase labels reported by the processor surface as
// Transcribing and Analyzing. The outcome is applied only if the run
// has not been reset in the meantime.
func (o *Orchestrator) Process(ctx context.Context) error {
	o.mu.Lock()
	if o.state != ReadyToProcess {
		o.mu.Unlock()
		return fmt.Errorf("pipeline: cannot process in state %s: %w", o.state, apperr.ErrInvalidState)
	}
	runID := o.runID
	blob := o.audio
	o.state = Uploading
	o.publishLocked()
	o.mu.Unlock()

	result, err := o.processor.Process(ctx, blob, func(phase string) {
		o.applyPhase(runID, phase)
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != runID {
		o.logger.Info("pipeline: discarding stale outcome", slog.String("run_id", runID))
		return nil
	}
	if err != nil {
		o.errMsg = analysis.Message(err)
		o.state = Error
		o.publishLocked()
		o.logger.Warn("pipeline: processing failed", slog.String("error", err.Error()))
		return err
	}
	o.result = result
	o.state = Complete
	o.publishLocked()
	o.logger.Info("pipeline: processing complete", slog.Int64("note_id", result.NoteID))
	return nil
}

func (o *Orchestrator) applyPhase(runID, phase string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != runID || !o.state.processing() {
		return
	}
	var next State
	switch phase {
	case analysis.PhaseUploading:
		next = Uploading
	case analysis.PhaseTranscribing:
		next = Transcribing
	case analysis.PhaseAnalyzing:
		next = Analyzing
	default:
		return
	}
	if next == o.state {
		return
	}
	o.state = next
	o.publishLocked()
}

// Reset returns the run to Idle from any state, discarding input,
// result and error, releasing the preview file and rotating the run
// id so a straggling analysis response cannot attach itself to the
// next run. An in-flight request is not cancelled, only ignored.
func (o *Orchestrator) Reset() {
	if o.session != nil && o.session.Active() {
		// Abandoned mid-recording: release the stream, drop the blob.
		_, _ = o.session.Stop(context.Background())
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.releasePreviewLocked()
	o.runID = uuid.NewString()
	o.state = Idle
	o.audio = nil
	o.result = nil
	o.errMsg = ""
	o.publishLocked()
}
