package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Fixture is an in-memory Store seeded with a demo dataset. It is the
// explicit alternative to the live SQLite store, selected once at
// startup; real call sites never fall back to it on error.
type Fixture struct {
	mu     sync.RWMutex
	notes  map[int64]models.Note
	tasks  map[int64]models.Task
	nextID int64
}

// NewFixture returns a Fixture seeded with demo notes and tasks whose
// deadlines are positioned relative to now.
func NewFixture(now time.Time) *Fixture {
	f := &Fixture{
		notes:  make(map[int64]models.Note),
		tasks:  make(map[int64]models.Task),
		nextID: 1,
	}
	f.seed(now)
	return f
}

func (f *Fixture) seed(now time.Time) {
	positive := models.SentimentPositive
	neutral := models.SentimentNeutral
	en := "English"

	noteA, _, _ := f.CreateNote(models.Note{
		Filename:   "Weekly_Sync_Design_Review.webm",
		Transcript: "We walked through the design review feedback and mobile responsiveness issues.",
		Summary:    "Design review sync covering mobile responsiveness and API documentation.",
		KeyPoints:  []string{"Mobile layout breaks on small screens", "API docs are outdated"},
		Sentiment:  &neutral,
		Language:   &en,
		CreatedAt:  now.AddDate(0, 0, -3),
	}, nil)
	noteB, _, _ := f.CreateNote(models.Note{
		Filename:   "Client_Feedback_Q1_Roadmap.mp3",
		Transcript: "The client asked for granular activity filters and a CSV export.",
		Summary:    "Client feedback session on the Q1 roadmap.",
		KeyPoints:  []string{"Granular filters requested", "CSV export is a priority"},
		Sentiment:  &positive,
		Language:   &en,
		CreatedAt:  now.AddDate(0, 0, -1),
	}, nil)

	days := func(n int) *models.Date {
		d := models.DateOf(now.AddDate(0, 0, n))
		return &d
	}
	seedTasks := []models.Task{
		{NoteID: &noteA.ID, Description: "Review ensuring mobile responsiveness is working", Deadline: days(-2), Status: models.TaskPending},
		{NoteID: &noteA.ID, Description: "Update the API documentation for the new endpoints", Deadline: days(1), Status: models.TaskPending},
		{NoteID: &noteA.ID, Description: "Schedule a follow-up meeting with the design lead", Deadline: days(3), Status: models.TaskPending},
		{NoteID: &noteB.ID, Description: "Implement granular filters for user activity reports", Deadline: days(5), Status: models.TaskPending},
		{NoteID: &noteB.ID, Description: "Export user data to CSV feature", Deadline: days(7), Status: models.TaskPending},
		{NoteID: &noteB.ID, Description: "Draft initial authentication flow diagrams", Deadline: days(-5), Status: models.TaskCompleted},
	}
	for _, t := range seedTasks {
		f.addTask(t, now)
	}
}

func (f *Fixture) addTask(t models.Task, now time.Time) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	f.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.NoteID != nil {
		if n, ok := f.notes[*t.NoteID]; ok {
			filename := n.Filename
			t.NoteFilename = &filename
		}
	}
	f.tasks[t.ID] = t
	return t
}

// CreateNote stores a note and its tasks in memory.
func (f *Fixture) CreateNote(note models.Note, tasks []models.Task) (*models.Note, []models.Task, error) {
	f.mu.Lock()
	note.ID = f.nextID
	f.nextID++
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if note.KeyPoints == nil {
		note.KeyPoints = []string{}
	}
	f.notes[note.ID] = note
	f.mu.Unlock()

	created := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		t.NoteID = &note.ID
		if t.Status == "" {
			t.Status = models.TaskPending
		}
		created = append(created, f.addTask(t, note.CreatedAt))
	}
	return &note, created, nil
}

// GetNote returns a note by id.
func (f *Fixture) GetNote(id int64) (*models.Note, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.notes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &n, nil
}

// ListNotes returns all notes, newest first.
func (f *Fixture) ListNotes() ([]models.Note, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Note, 0, len(f.notes))
	for _, n := range f.notes {
		n.Transcript = ""
		n.RawTranscript = ""
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// DeleteNote removes a note and its tasks.
func (f *Fixture) DeleteNote(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.notes, id)
	for tid, t := range f.tasks {
		if t.NoteID != nil && *t.NoteID == id {
			delete(f.tasks, tid)
		}
	}
	return nil
}

// Search performs a case-insensitive substring search.
func (f *Fixture) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	q := strings.ToLower(query)
	var out []SearchResult
	for _, n := range f.notes {
		if strings.Contains(strings.ToLower(n.Transcript), q) ||
			strings.Contains(strings.ToLower(n.Summary), q) {
			out = append(out, SearchResult{
				NoteID:    n.ID,
				Filename:  n.Filename,
				Summary:   n.Summary,
				Snippet:   n.Summary,
				CreatedAt: n.CreatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListTasks returns every task, newest first.
func (f *Fixture) ListTasks() ([]models.Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// TasksByNote returns tasks belonging to one note.
func (f *Fixture) TasksByNote(noteID int64) ([]models.Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Task
	for _, t := range f.tasks {
		if t.NoteID != nil && *t.NoteID == noteID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateTaskStatus sets a task's status.
func (f *Fixture) UpdateTaskStatus(id int64, status string) (*models.Task, error) {
	if status != models.TaskPending && status != models.TaskCompleted {
		return nil, fmt.Errorf("store: invalid task status %q", status)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	t.Status = status
	f.tasks[id] = t
	return &t, nil
}

// Close is a no-op for the fixture store.
func (f *Fixture) Close() error { return nil }
