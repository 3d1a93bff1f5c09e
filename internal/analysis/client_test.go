package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

func testBlob() *models.AudioBlob {
	return &models.AudioBlob{
		Filename: "meeting.webm",
		MIME:     "audio/webm",
		Data:     []byte("fake audio"),
	}
}

func TestProcessSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		if header.Filename != "meeting.webm" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake audio" {
			t.Errorf("file content = %q", data)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"note_id": 7,
			"filename": "meeting.webm",
			"transcript": "hello",
			"summary": "short",
			"key_points": ["a"],
			"tasks": [{"id":1,"task":"do it","status":"pending"}],
			"sentiment": "Neutral",
			"created_at": "2026-02-10T12:00:00Z"
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	var phases []string
	result, err := c.Process(context.Background(), testBlob(), func(p string) { phases = append(phases, p) })
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.NoteID != 7 || result.Transcript != "hello" {
		t.Errorf("result = %+v", result)
	}
	if len(result.Tasks) != 1 || result.Tasks[0].Description != "do it" {
		t.Errorf("tasks = %+v", result.Tasks)
	}

	want := []string{PhaseUploading, PhaseTranscribing, PhaseAnalyzing}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
}

func TestProcessErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail":"model overloaded"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.Process(context.Background(), testBlob(), nil)
	if !errors.Is(err, apperr.ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}
	if Message(err) != "model overloaded" {
		t.Errorf("message = %q, want %q", Message(err), "model overloaded")
	}
}

func TestProcessErrorWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>gateway error</html>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.Process(context.Background(), testBlob(), nil)
	if !errors.Is(err, apperr.ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}
	if Message(err) != fallbackMessage {
		t.Errorf("message = %q, want %q", Message(err), fallbackMessage)
	}
}

func TestProcessMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	if _, err := c.Process(context.Background(), testBlob(), nil); !errors.Is(err, apperr.ErrAnalysisFailed) {
		t.Fatalf("err = %v, want ErrAnalysisFailed", err)
	}
}

func TestProcessConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.Process(context.Background(), testBlob(), nil)
	if !errors.Is(err, apperr.ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
	if Message(err) != fallbackMessage {
		t.Errorf("message = %q, want %q", Message(err), fallbackMessage)
	}
}
