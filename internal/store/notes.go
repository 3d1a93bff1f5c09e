package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// CreateNote inserts a note and its extracted tasks in one transaction
// and returns both with assigned ids.
func (db *DB) CreateNote(note models.Note, tasks []models.Task) (*models.Note, []models.Task, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	keyPointsJSON, _ := json.Marshal(emptyIfNil(note.KeyPoints))

	now := note.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	res, err := tx.Exec(`
		INSERT INTO notes (filename, raw_transcript, transcript, summary, key_points, sentiment, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, note.Filename, note.RawTranscript, note.Transcript, note.Summary,
		string(keyPointsJSON), sentimentValue(note.Sentiment), nullString(note.Language), now)
	if err != nil {
		return nil, nil, fmt.Errorf("store: insert note: %w", err)
	}
	noteID, err := res.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("store: note id: %w", err)
	}

	created := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		var deadline any
		if t.Deadline != nil {
			deadline = t.Deadline.String()
		}
		status := t.Status
		if status == "" {
			status = models.TaskPending
		}
		taskRes, err := tx.Exec(`
			INSERT INTO tasks (note_id, description, deadline, status, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, noteID, t.Description, deadline, status, now)
		if err != nil {
			return nil, nil, fmt.Errorf("store: insert task: %w", err)
		}
		taskID, err := taskRes.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("store: task id: %w", err)
		}
		t.ID = taskID
		t.NoteID = &noteID
		t.NoteFilename = &note.Filename
		t.Status = status
		t.CreatedAt = now
		created = append(created, t)
	}

	if err := ftsUpsert(tx, noteID, note.Filename, note.Transcript, note.Summary); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("store: commit: %w", err)
	}

	note.ID = noteID
	note.CreatedAt = now
	note.KeyPoints = emptyIfNil(note.KeyPoints)
	return &note, created, nil
}

// GetNote returns a single note with full transcript detail.
func (db *DB) GetNote(id int64) (*models.Note, error) {
	row := db.conn.QueryRow(`
		SELECT id, filename, raw_transcript, transcript, summary, key_points, sentiment, language, created_at
		FROM notes WHERE id = ?
	`, id)
	note, err := scanNote(row)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns all notes newest first. Transcripts are omitted from
// the list view to keep payloads small.
func (db *DB) ListNotes() ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT id, filename, '', '', summary, key_points, sentiment, language, created_at
		FROM notes ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *note)
	}
	return out, rows.Err()
}

// DeleteNote removes a note, its tasks (via cascade), and its FTS entry.
func (db *DB) DeleteNote(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*models.Note, error) {
	var (
		note          models.Note
		keyPointsJSON string
		sentiment     sql.NullString
		language      sql.NullString
	)
	err := r.Scan(&note.ID, &note.Filename, &note.RawTranscript, &note.Transcript,
		&note.Summary, &keyPointsJSON, &sentiment, &language, &note.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan note: %w", err)
	}

	note.KeyPoints = []string{}
	_ = json.Unmarshal([]byte(keyPointsJSON), &note.KeyPoints)

	if sentiment.Valid {
		if s, ok := models.ParseSentiment(sentiment.String); ok {
			note.Sentiment = &s
		}
	}
	if language.Valid {
		note.Language = &language.String
	}
	return &note, nil
}

func sentimentValue(s *models.Sentiment) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
