package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Phase labels reported by Client.Process while its single request is
// in flight. They are presentation states, not independently
// cancellable steps.
const (
	PhaseUploading    = "uploading"
	PhaseTranscribing = "transcribing"
	PhaseAnalyzing    = "analyzing"
)

// fallbackMessage is shown when a failure carries no usable detail.
const fallbackMessage = "processing failed"

// PhaseFunc receives phase-label updates during a processing round
// trip. May be nil.
type PhaseFunc func(phase string)

// Client calls the upload-and-transcribe endpoint: one multipart POST
// carrying the audio under the "file" field, answered with the full
// analysis result.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a pipeline client for the given endpoint URL.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// phaseReader flips the phase once the request body has been fully
// consumed, which is as close to "upload finished" as one round trip
// allows.
type phaseReader struct {
	r      io.Reader
	onDone func()
	done   bool
}

func (p *phaseReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err == io.EOF && !p.done {
		p.done = true
		if p.onDone != nil {
			p.onDone()
		}
	}
	return n, err
}

// Process uploads the blob and returns the analysis result. Phases are
// reported in order: uploading before the request starts, transcribing
// once the body is sent, analyzing when the response arrives. Failures
// return apperr.ErrAnalysisFailed wrapped with a human-readable
// message extracted from the {detail} body when present.
func (c *Client) Process(ctx context.Context, blob *models.AudioBlob, onPhase PhaseFunc) (*models.AnalysisResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	head := textproto.MIMEHeader{}
	head.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, blob.Filename))
	head.Set("Content-Type", blob.MIME)
	part, err := mw.CreatePart(head)
	if err != nil {
		return nil, fmt.Errorf("analysis: build multipart: %w", err)
	}
	if _, err := part.Write(blob.Data); err != nil {
		return nil, fmt.Errorf("analysis: write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("analysis: close multipart: %w", err)
	}

	report := func(phase string) {
		if onPhase != nil {
			onPhase(phase)
		}
	}
	report(PhaseUploading)

	body := &phaseReader{r: &buf, onDone: func() { report(PhaseTranscribing) }}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("analysis: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fallbackMessage, apperr.ErrUploadFailed)
	}
	defer resp.Body.Close()

	report(PhaseAnalyzing)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fallbackMessage, apperr.ErrAnalysisFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w", detailMessage(raw), apperr.ErrAnalysisFailed)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", fallbackMessage, apperr.ErrAnalysisFailed)
	}
	if result.KeyPoints == nil {
		result.KeyPoints = []string{}
	}
	if result.Tasks == nil {
		result.Tasks = []models.Task{}
	}
	return &result, nil
}

// detailMessage extracts {detail} from an error body, falling back to
// the generic message.
func detailMessage(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if d := strings.TrimSpace(payload.Detail); d != "" {
			return d
		}
	}
	return fallbackMessage
}

// Message returns the human-readable part of a processing error: the
// text before the wrapped sentinel.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i > 0 {
		return msg[:i]
	}
	return msg
}
