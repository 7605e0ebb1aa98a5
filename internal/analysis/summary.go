package analysis

import (
	"context"
	"strings"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/providers/llm"
)

type Summary struct {
	Bullets           []string `json:"bullets"`
	Decisions         []string `json:"decisions"`
	Risks             []string `json:"risks"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// EmptySummary is the degraded summary: four empty lists.
func EmptySummary() Summary {
	return Summary{Bullets: []string{}, Decisions: []string{}, Risks: []string{}, FollowUpQuestions: []string{}}
}

type TaskItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

// SummaryExtractor turns a transcript into minutes and action items.
type SummaryExtractor struct {
	llm llm.Provider
}

func NewSummaryExtractor(p llm.Provider) *SummaryExtractor {
	return &SummaryExtractor{llm: p}
}

func (x *SummaryExtractor) Extract(ctx context.Context, transcript string) (Summary, []TaskItem, error) {
	if strings.TrimSpace(transcript) == "" {
		return EmptySummary(), []TaskItem{}, ErrEmptyInput
	}
	raw, err := x.llm.GenerateJSON(ctx, buildSummaryPrompt(transcript))
	if err != nil {
		return EmptySummary(), []TaskItem{}, err
	}
	return parseSummary(raw)
}

type summaryWire struct {
	Summary any `json:"summary"`
	Tasks   any `json:"tasks"`
}

func parseSummary(raw string) (Summary, []TaskItem, error) {
	var w summaryWire
	if err := decodeJSON(raw, &w); err != nil {
		return EmptySummary(), []TaskItem{}, err
	}

	obj, ok := w.Summary.(map[string]any)
	if !ok {
		return EmptySummary(), []TaskItem{}, malformed("summary must be an object")
	}
	s := Summary{
		Bullets:           stringList(obj["bullets"]),
		Decisions:         stringList(obj["decisions"]),
		Risks:             stringList(obj["risks"]),
		FollowUpQuestions: stringList(obj["follow_up_questions"]),
	}

	tasks := []TaskItem{}
	if w.Tasks != nil {
		arr, ok := w.Tasks.([]any)
		if !ok {
			return EmptySummary(), []TaskItem{}, malformed("tasks must be an array")
		}
		for _, it := range arr {
			t, ok := it.(map[string]any)
			if !ok {
				continue
			}
			title := str(t["title"])
			if title == "" {
				continue
			}
			tasks = append(tasks, TaskItem{
				Title:       title,
				Description: str(t["description"]),
				Owner:       str(t["owner"]),
				DueDate:     str(t["due_date"]),
				Priority:    normalizePriority(str(t["priority"])),
				Status:      normalizeStatus(str(t["status"])),
			})
		}
	}
	return s, tasks, nil
}

func normalizePriority(p string) string {
	switch strings.ToLower(p) {
	case models.PriorityLow:
		return models.PriorityLow
	case models.PriorityHigh, "urgent", "critical":
		return models.PriorityHigh
	default:
		return models.PriorityMedium
	}
}

func normalizeStatus(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case models.StatusInProgress, "doing", "started":
		return models.StatusInProgress
	case models.StatusDone, "completed", "complete", "closed":
		return models.StatusDone
	default:
		return models.StatusTodo
	}
}
