package store

import (
	"time"

	"github.com/starford/ansuz/internal/models"
)

// SearchResult represents one search hit over transcripts and summaries.
type SearchResult struct {
	NoteID    int64     `json:"id"`
	Filename  string    `json:"filename"`
	Summary   string    `json:"summary"`
	Snippet   string    `json:"snippet"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the note/task persistence operations. Consumers should
// depend on this interface rather than the concrete *DB type; the
// fixture data source satisfies it too.
type Store interface {
	CreateNote(note models.Note, tasks []models.Task) (*models.Note, []models.Task, error)
	GetNote(id int64) (*models.Note, error)
	ListNotes() ([]models.Note, error)
	DeleteNote(id int64) error
	Search(query string, limit int) ([]SearchResult, error)
	ListTasks() ([]models.Task, error)
	TasksByNote(noteID int64) ([]models.Task, error)
	UpdateTaskStatus(id int64, status string) (*models.Task, error)
	Close() error
}

// Verify implementations satisfy Store at compile time.
var (
	_ Store = (*DB)(nil)
	_ Store = (*Fixture)(nil)
)
