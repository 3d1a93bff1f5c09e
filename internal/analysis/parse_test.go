package analysis

import (
	"testing"

	"github.com/starford/ansuz/internal/models"
)

func TestParseSummaryPlain(t *testing.T) {
	sum, points, err := parseSummary(`{"summary":"Quick sync.","key_points":["a","b"]}`)
	if err != nil {
		t.Fatalf("parseSummary: %v", err)
	}
	if sum != "Quick sync." {
		t.Errorf("summary = %q", sum)
	}
	if len(points) != 2 {
		t.Errorf("key points = %v", points)
	}
}

func TestParseSummaryFencedWithProse(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"summary\":\"S\",\"key_points\":[]}\n```\nHope that helps!"
	sum, points, err := parseSummary(raw)
	if err != nil {
		t.Fatalf("parseSummary: %v", err)
	}
	if sum != "S" {
		t.Errorf("summary = %q", sum)
	}
	if points == nil || len(points) != 0 {
		t.Errorf("key points = %v, want empty slice", points)
	}
}

func TestParseSummaryMissingKeyPoints(t *testing.T) {
	_, points, err := parseSummary(`{"summary":"S"}`)
	if err != nil {
		t.Fatalf("parseSummary: %v", err)
	}
	if points == nil {
		t.Error("key points should degrade to empty, not nil")
	}
}

func TestParseSummaryNoObject(t *testing.T) {
	if _, _, err := parseSummary("I could not produce JSON, sorry."); err == nil {
		t.Error("expected error for output without a JSON object")
	}
}

func TestParseTasks(t *testing.T) {
	raw := `{"tasks":[
		{"description":"Ship it","deadline":"2026-03-01"},
		{"task":"Alt field name","deadline":"null"},
		{"description":"No date"},
		{"description":"","deadline":"2026-03-02"},
		{"description":"Bad date","deadline":"next Tuesday"}
	]}`
	tasks, err := parseTasks(raw)
	if err != nil {
		t.Fatalf("parseTasks: %v", err)
	}
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks (empty description dropped), got %d", len(tasks))
	}
	if tasks[0].Deadline == nil || tasks[0].Deadline.String() != "2026-03-01" {
		t.Errorf("deadline = %v", tasks[0].Deadline)
	}
	if tasks[1].Description != "Alt field name" || tasks[1].Deadline != nil {
		t.Errorf("task %+v, want alt field accepted with null deadline", tasks[1])
	}
	if tasks[3].Deadline != nil {
		t.Errorf("unparseable deadline should be dropped, got %v", tasks[3].Deadline)
	}
	for _, task := range tasks {
		if task.Status != models.TaskPending {
			t.Errorf("task %q status = %q, want pending", task.Description, task.Status)
		}
	}
}

func TestParseSentiment(t *testing.T) {
	cases := map[string]*models.Sentiment{
		"Positive":     ptr(models.SentimentPositive),
		"  neutral\n":  ptr(models.SentimentNeutral),
		`"TENSE"`:      ptr(models.SentimentTense),
		"urgent.":      ptr(models.SentimentUrgent),
		"Melancholic":  nil,
		"":             nil,
		"very tense I": nil,
	}
	for in, want := range cases {
		got := parseSentiment(in)
		switch {
		case want == nil && got != nil:
			t.Errorf("parseSentiment(%q) = %v, want nil", in, *got)
		case want != nil && (got == nil || *got != *want):
			t.Errorf("parseSentiment(%q) = %v, want %v", in, got, *want)
		}
	}
}

func ptr[T any](v T) *T { return &v }
