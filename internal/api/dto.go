package api

import (
	"github.com/starford/ansuz/internal/dashboard"
	"github.com/starford/ansuz/internal/models"
)

// UploadResponse answers POST /meetings/upload.
type UploadResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    *models.UploadInfo `json:"data,omitempty"`
}

// MeetingsResponse answers GET /meetings.
type MeetingsResponse struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
}

// TranslateRequest is the body of POST /notes/{id}/translate.
type TranslateRequest struct {
	TargetLanguage string `json:"target_language"`
}

// TranslateResponse answers POST /notes/{id}/translate.
type TranslateResponse struct {
	TranslatedSummary string `json:"translated_summary"`
}

// TaskStatusRequest is the body of PATCH /tasks/{id}.
type TaskStatusRequest struct {
	Status string `json:"status"`
}

// VoiceCommandRequest is the body of POST /voice-command.
type VoiceCommandRequest struct {
	Command string `json:"command"`
	NoteID  int64  `json:"note_id"`
}

// VoiceCommandResponse answers POST /voice-command.
type VoiceCommandResponse struct {
	Success  bool   `json:"success"`
	Command  string `json:"command"`
	Response string `json:"response"`
}

// VoiceExchangeResponse answers the spoken voice-session routes.
// HasAudio reports whether a synthesized answer can be fetched from
// the answer route.
type VoiceExchangeResponse struct {
	Success  bool   `json:"success"`
	Command  string `json:"command"`
	Response string `json:"response"`
	HasAudio bool   `json:"has_audio"`
}

// NoteResponse answers GET /notes/{id} with the note's tasks inlined.
type NoteResponse struct {
	models.Note
	Tasks []models.Task `json:"tasks"`
}

// DashboardResponse answers GET /tasks/dashboard.
type DashboardResponse struct {
	Filter string           `json:"filter"`
	Tasks  []models.Task    `json:"tasks"`
	Counts dashboard.Counts `json:"counts"`
}

// detailResponse is the failure body of the upload-and-transcribe
// endpoint.
type detailResponse struct {
	Detail string `json:"detail"`
}
