package repo

import (
	"context"
	"slices"
	"sync"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"
)

var _ TaskRepo = (*MemoryTaskRepo)(nil)

// MemoryTaskRepo keeps tasks in process memory. Lookups go through the id
// map, listing follows the order slice (insertion order).
type MemoryTaskRepo struct {
	mu     sync.RWMutex
	tasks  map[int64]*dom.Task
	order  []int64
	lastID int64
}

// NewMemoryTaskRepo returns an empty MemoryTaskRepo. The first id is 1.
func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{tasks: make(map[int64]*dom.Task)}
}

func (r *MemoryTaskRepo) Create(_ context.Context, d dom.TaskDraft) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	t := &dom.Task{
		ID:          r.lastID,
		Title:       d.Title,
		Description: d.Description,
		DueBy:       d.DueBy,
	}
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	return *t, nil
}

func (r *MemoryTaskRepo) GetByID(_ context.Context, id int64) (dom.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return dom.Task{}, ErrNotFound
	}
	return *t, nil
}

func (r *MemoryTaskRepo) List(_ context.Context) ([]dom.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]dom.Task, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, *r.tasks[id])
	}
	return list, nil
}

// Replace overwrites title, description, dueBy and completed of the stored record.
func (r *MemoryTaskRepo) Replace(_ context.Context, id int64, p dom.TaskPatch) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return dom.Task{}, ErrNotFound
	}
	t.Title = p.Title
	t.Description = p.Description
	t.DueBy = p.DueBy
	t.Completed = p.Completed
	return *t, nil
}

func (r *MemoryTaskRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return nil
}

func (r *MemoryTaskRepo) MarkDone(_ context.Context, id int64) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return dom.Task{}, ErrNotFound
	}
	t.Completed = true
	return *t, nil
}
