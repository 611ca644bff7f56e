package domain

import "time"

// Task is the stored todo record. Store-owned; callers get copies.
// Independent of the HTTP layer and of any storage backend.
type Task struct {
	ID          int64
	Title       *string
	Description *string
	DueBy       *time.Time
	Completed   bool
}

// TaskDraft is the input for creating a task. New tasks start not completed.
type TaskDraft struct {
	Title       *string
	Description *string
	DueBy       *time.Time
}

// TaskPatch replaces every mutable field of an existing task.
type TaskPatch struct {
	Title       *string
	Description *string
	DueBy       *time.Time
	Completed   bool
}

// Draft drops the completion flag; used when a replace falls back to create.
func (p TaskPatch) Draft() TaskDraft {
	return TaskDraft{Title: p.Title, Description: p.Description, DueBy: p.DueBy}
}
