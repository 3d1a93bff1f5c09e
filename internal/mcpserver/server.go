// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz meeting notes and tasks for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/dashboard"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/notesvc"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp *server.MCPServer
	svc *notesvc.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *notesvc.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through meeting transcripts and summaries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one meeting note: transcript, summary, key points and its tasks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Numeric note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all meeting notes (id, filename, summary), newest first."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List extracted action items. The optional filter matches the "+
			"dashboard buckets; read the ansuz://task-format resource for the task shape."),
		mcp.WithString("filter", mcp.Description("Optional filter: pending, due_soon, overdue or completed")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task as completed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Numeric task id")),
	), s.completeTask)

	s.mcp.AddTool(mcp.NewTool("ask_note",
		mcp.WithDescription("Ask a natural-language question about one meeting; answered from its transcript."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Numeric note id")),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
	), s.askNote)

	s.mcp.AddTool(mcp.NewTool("upload_meeting_audio",
		mcp.WithDescription("Upload a meeting recording and run the full analysis pipeline "+
			"(transcription, summary, task extraction). Accepts an http(s) URL or a base64 "+
			"data URI. Returns the resulting note as JSON."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the audio file")),
		mcp.WithString("filename", mcp.Description("Optional filename override (extension decides the format)")),
	), s.uploadMeetingAudio)

	// Resource: task format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://task-format", "Task Format Contract",
			mcp.WithResourceDescription("Shape of extracted tasks and the dashboard filter semantics."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaskFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := idArg(req)
	if !ok {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	note, tasks, err := s.svc.Note(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: note %d", id)), nil
	}
	out, _ := json.MarshalIndent(struct {
		*models.Note
		Tasks []models.Task `json:"tasks"`
	}{note, tasks}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.Notes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, n := range notes {
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s", n.ID, n.Filename, n.Summary))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := dashboard.FilterPending
	if f, err := req.RequireString("filter"); err == nil && f != "" {
		switch dashboard.Filter(f) {
		case dashboard.FilterPending, dashboard.FilterDueSoon, dashboard.FilterOverdue, dashboard.FilterCompleted:
			filter = dashboard.Filter(f)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown filter: %s", f)), nil
		}
	}

	tasks, err := s.svc.Tasks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	today := models.DateOf(time.Now())
	out, _ := json.MarshalIndent(dashboard.Sort(dashboard.Apply(tasks, filter, today), today), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) completeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := idArg(req)
	if !ok {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	task, err := s.svc.UpdateTaskStatus(ctx, id, models.TaskCompleted)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: task %d", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("completed: %s", task.Description)), nil
}

func (s *Server) askNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := idArg(req)
	if !ok {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := s.svc.Command(ctx, id, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(answer), nil
}

func (s *Server) readTaskFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://task-format",
			MIMEType: "text/markdown",
			Text:     TaskFormatContract,
		},
	}, nil
}

// idArg reads the "id" string argument as an int64.
func idArg(req mcp.CallToolRequest) (int64, bool) {
	raw, err := req.RequireString("id")
	if err != nil {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%d", &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
