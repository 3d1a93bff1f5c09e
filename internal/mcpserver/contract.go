package mcpserver

// TaskFormatContract describes the task shape and dashboard semantics
// that LLM consumers should rely on when listing or completing tasks.
const TaskFormatContract = `# Ansuz Task Format Contract

Tasks are action items extracted from meeting transcripts. Every task
returned by the ` + "`" + `list_tasks` + "`" + ` tool follows this JSON shape.

## Shape

` + "```" + `json
{
  "id": 42,                          // numeric id, use with complete_task
  "note_id": 7,                      // owning meeting note (absent for manual tasks)
  "note_filename": "Weekly_Sync.webm",
  "task": "Update the API documentation",
  "deadline": "2025-02-14",          // ISO date, absent when no deadline was mentioned
  "status": "pending",               // "pending" or "completed"
  "created_at": "2025-02-01T10:30:00Z"
}
` + "```" + `

## Rules

1. **Status** is a closed set: ` + "`" + `pending` + "`" + ` or ` + "`" + `completed` + "`" + `. Nothing else.
2. **Deadlines** are date-only (YYYY-MM-DD), no time-of-day or timezone.
   A task without a deadline simply omits the field.
3. **Filters** passed to ` + "`" + `list_tasks` + "`" + ` match the dashboard buckets:
   - ` + "`" + `pending` + "`" + ` — all not-completed tasks.
   - ` + "`" + `overdue` + "`" + ` — pending with a deadline before today.
   - ` + "`" + `due_soon` + "`" + ` — pending with a deadline within the next 7 days (today inclusive).
   - ` + "`" + `completed` + "`" + ` — done tasks.
   ` + "`" + `overdue` + "`" + ` and ` + "`" + `due_soon` + "`" + ` never overlap for one task.
4. **Ordering** is deterministic: pending before completed, overdue first,
   then by deadline ascending, undated last.
5. **Completion is one-way in spirit.** ` + "`" + `complete_task` + "`" + ` marks a task done;
   reopening is possible via the REST API but not exposed as a tool.

## Uploading audio

- ` + "`" + `upload_meeting_audio` + "`" + ` accepts an http(s) URL or a base64 ` + "`" + `data:` + "`" + ` URI.
- Supported formats: webm, mp3, wav, m4a, mp4, ogg, flac.
- The pipeline runs synchronously and answers with the full note JSON,
  including the extracted tasks with their persisted ids.
`
