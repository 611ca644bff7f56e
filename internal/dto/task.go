package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"
)

// DueBy parses dueBy from JSON as either date-only ("2006-01-02") or an
// ISO-8601 datetime. Date-only is stored as start of that day in UTC.
// null, "" and a missing field all mean no due date.
type DueBy struct{ t *time.Time }

var dueByLayouts = []string{
	"2006-01-02", // date only
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

func (d *DueBy) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueBy: %w", err)
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	for _, layout := range dueByLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			if layout == "2006-01-02" {
				parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			}
			d.t = &parsed
			return nil
		}
	}
	return fmt.Errorf("dueBy: use date (YYYY-MM-DD) or ISO-8601 datetime")
}

// Ptr returns *time.Time for use in service/domain.
func (d DueBy) Ptr() *time.Time { return d.t }

// CreateTaskRequest is the JSON body for POST /tasks/.
type CreateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueBy       DueBy   `json:"dueBy" swaggertype:"string" format:"date-time"`
}

func (r CreateTaskRequest) Draft() dom.TaskDraft {
	return dom.TaskDraft{Title: r.Title, Description: r.Description, DueBy: r.DueBy.Ptr()}
}

// UpdateTaskRequest is the JSON body for PUT /tasks/{id}. Every field is
// replaced; absent fields become null (or false for completed).
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueBy       DueBy   `json:"dueBy" swaggertype:"string" format:"date-time"`
	Completed   bool    `json:"completed"`
}

func (r UpdateTaskRequest) Patch() dom.TaskPatch {
	return dom.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		DueBy:       r.DueBy.Ptr(),
		Completed:   r.Completed,
	}
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueBy       *time.Time `json:"dueBy"`
	Completed   bool       `json:"completed"`
}

func NewTaskResponse(t dom.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueBy:       t.DueBy,
		Completed:   t.Completed,
	}
}

// NewTaskResponses never returns nil so an empty store encodes as [].
func NewTaskResponses(list []dom.Task) []TaskResponse {
	out := make([]TaskResponse, len(list))
	for i := range list {
		out[i] = NewTaskResponse(list[i])
	}
	return out
}
