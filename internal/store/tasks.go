package store

import (
	"database/sql"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const taskColumns = `
	SELECT t.id, t.note_id, n.filename, t.description, t.deadline, t.status, t.created_at
	FROM tasks t JOIN notes n ON n.id = t.note_id
`

// ListTasks returns every task across all notes, newest first.
func (db *DB) ListTasks() ([]models.Task, error) {
	rows, err := db.conn.Query(taskColumns + ` ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// TasksByNote returns the tasks extracted from one note.
func (db *DB) TasksByNote(noteID int64) ([]models.Task, error) {
	rows, err := db.conn.Query(taskColumns+` WHERE t.note_id = ? ORDER BY t.id`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: tasks by note: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// UpdateTaskStatus sets a task's status and returns the updated task.
func (db *DB) UpdateTaskStatus(id int64, status string) (*models.Task, error) {
	if status != models.TaskPending && status != models.TaskCompleted {
		return nil, fmt.Errorf("store: invalid task status %q", status)
	}
	res, err := db.conn.Exec(`UPDATE tasks SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return nil, fmt.Errorf("store: update task status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}

	row := db.conn.QueryRow(taskColumns+` WHERE t.id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var out []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

func scanTask(r rowScanner) (*models.Task, error) {
	var (
		task     models.Task
		noteID   int64
		filename string
		deadline sql.NullString
	)
	err := r.Scan(&task.ID, &noteID, &filename, &task.Description, &deadline, &task.Status, &task.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan task: %w", err)
	}
	task.NoteID = &noteID
	task.NoteFilename = &filename
	if deadline.Valid && deadline.String != "" {
		if d, err := models.ParseDate(deadline.String); err == nil {
			task.Deadline = &d
		}
	}
	return &task, nil
}
