package repo

import (
	"context"
	"errors"
	"time"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"
)

// ErrNotFound is returned by every backend when no task has the given id.
var ErrNotFound = errors.New("task not found")

// TaskRepo provides task storage. Ids are assigned by the backend,
// increase monotonically and are never reused.
type TaskRepo interface {
	Create(ctx context.Context, d dom.TaskDraft) (dom.Task, error)
	GetByID(ctx context.Context, id int64) (dom.Task, error)
	List(ctx context.Context) ([]dom.Task, error)
	Replace(ctx context.Context, id int64, p dom.TaskPatch) (dom.Task, error)
	Delete(ctx context.Context, id int64) error
	MarkDone(ctx context.Context, id int64) (dom.Task, error)
}

// SeedTasks returns the startup records. Due dates are offset from now.
func SeedTasks(now time.Time) []dom.TaskDraft {
	day := 24 * time.Hour
	due := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	return []dom.TaskDraft{
		{Title: ptr("Walk the dog"), Description: ptr("Take the dog for a walk around the block")},
		{Title: ptr("Do the dishes"), Description: ptr("Make sure to do all the dishes in the sink"), DueBy: due(1 * day)},
		{Title: ptr("Do the laundry"), Description: ptr("Make sure to do all the laundry in the basket"), DueBy: due(3 * day)},
		{Title: ptr("Clean the bathroom"), Description: ptr("Make sure to clean the bathroom"), DueBy: due(5 * day)},
		{Title: ptr("Clean the car"), Description: ptr("Make sure to clean the car"), DueBy: due(7 * day)},
	}
}

// Seed inserts the startup records if r holds no tasks yet.
// It reports how many tasks were inserted.
func Seed(ctx context.Context, r TaskRepo, now time.Time) (int, error) {
	existing, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	seeds := SeedTasks(now)
	for _, d := range seeds {
		if _, err := r.Create(ctx, d); err != nil {
			return 0, err
		}
	}
	return len(seeds), nil
}

func ptr(s string) *string { return &s }
