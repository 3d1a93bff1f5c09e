package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Model output is requested as a JSON object but arrives with varying
// decoration: markdown fences, leading prose, trailing commentary. The
// helpers here locate the object and decode it, falling back rather
// than failing where a degraded result is still usable.

// extractJSON returns the first top-level JSON object in s, stripping
// markdown code fences if present.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func decodeObject(raw string, v any) error {
	obj := extractJSON(raw)
	if obj == "" {
		return fmt.Errorf("analysis: no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("analysis: decode model output: %w", err)
	}
	return nil
}

type summaryPayload struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// parseSummary decodes {summary, key_points}. A missing key_points
// array degrades to empty, not an error.
func parseSummary(raw string) (string, []string, error) {
	var p summaryPayload
	if err := decodeObject(raw, &p); err != nil {
		return "", nil, err
	}
	if p.Summary == "" {
		return "", nil, fmt.Errorf("analysis: model output has no summary")
	}
	if p.KeyPoints == nil {
		p.KeyPoints = []string{}
	}
	return p.Summary, p.KeyPoints, nil
}

type taskPayload struct {
	Tasks []struct {
		Description string `json:"description"`
		Task        string `json:"task"`
		Deadline    string `json:"deadline"`
	} `json:"tasks"`
}

// parseTasks decodes {tasks: [{description|task, deadline}]}. Entries
// without a description are dropped; deadlines that are not ISO dates
// are treated as absent.
func parseTasks(raw string) ([]models.Task, error) {
	var p taskPayload
	if err := decodeObject(raw, &p); err != nil {
		return nil, err
	}
	out := make([]models.Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		desc := strings.TrimSpace(t.Description)
		if desc == "" {
			desc = strings.TrimSpace(t.Task)
		}
		if desc == "" {
			continue
		}
		task := models.Task{Description: desc, Status: models.TaskPending}
		if d := strings.TrimSpace(t.Deadline); d != "" && !strings.EqualFold(d, "null") && !strings.EqualFold(d, "none") {
			if date, err := models.ParseDate(d); err == nil {
				task.Deadline = &date
			}
		}
		out = append(out, task)
	}
	return out, nil
}

// trimAnswer strips whitespace and stray quoting from a free-text
// model answer.
func trimAnswer(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"'`"))
}

// parseSentiment maps a one-word model answer onto the closed sentiment
// set. Anything outside the set is dropped.
func parseSentiment(raw string) *models.Sentiment {
	word := strings.TrimSpace(strings.Trim(raw, "\"'.` \n"))
	if word == "" {
		return nil
	}
	word = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	if s, ok := models.ParseSentiment(word); ok {
		return &s
	}
	return nil
}
