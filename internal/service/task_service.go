package service

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"
	"github.com/tsukiblade/SimpleTaskManager/internal/events"
	"github.com/tsukiblade/SimpleTaskManager/internal/repo"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrNotFound = errors.New("not found")

// TaskCache is the read-through cache used by TaskService.
// *cache.TaskCache implements it.
type TaskCache interface {
	GetList(ctx context.Context) ([]dom.Task, error)
	SetList(ctx context.Context, list []dom.Task) error
	GetTask(ctx context.Context, id int64) (dom.Task, bool, error)
	SetTask(ctx context.Context, t dom.Task) error
	Invalidate(ctx context.Context, ids ...int64) error
}

// Publisher receives an event after every successful write.
// *events.Hub implements it.
type Publisher interface {
	Publish(ev events.Event)
}

type TaskService struct {
	repo   repo.TaskRepo
	cache  TaskCache
	events Publisher
	log    *zap.SugaredLogger
	sf     singleflight.Group
	// gen counts writes; a load that overlaps one must not fill the cache.
	gen atomic.Uint64
}

// NewTaskService creates a TaskService. c and p may be nil to disable
// caching and event publishing.
func NewTaskService(r repo.TaskRepo, c TaskCache, p Publisher, lg *zap.SugaredLogger) *TaskService {
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	return &TaskService{repo: r, cache: c, events: p, log: lg}
}

// List returns every task in insertion order.
func (s *TaskService) List(ctx context.Context) ([]dom.Task, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}
	v, err, _ := s.sf.Do("list", func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		list, err := s.cache.GetList(ctx)
		if err != nil {
			s.log.Warnw("cache get list", "error", err)
		} else if list != nil {
			return list, nil
		}
		gen := s.gen.Load()
		list, err = s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, gen, func() error { return s.cache.SetList(ctx, list) }, "list")
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Task), nil
}

func (s *TaskService) GetByID(ctx context.Context, id int64) (dom.Task, error) {
	if s.cache == nil {
		return s.get(ctx, id)
	}
	v, err, _ := s.sf.Do("task:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		t, ok, err := s.cache.GetTask(ctx, id)
		if err != nil {
			s.log.Warnw("cache get task", "id", id, "error", err)
		} else if ok {
			return t, nil
		}
		gen := s.gen.Load()
		t, err = s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, gen, func() error { return s.cache.SetTask(ctx, t) }, "task", id)
		return t, nil
	})
	if err != nil {
		return dom.Task{}, err
	}
	return v.(dom.Task), nil
}

func (s *TaskService) Create(ctx context.Context, d dom.TaskDraft) (dom.Task, error) {
	t, err := s.repo.Create(ctx, d)
	if err != nil {
		return dom.Task{}, err
	}
	s.afterWrite(ctx, events.TaskCreated, t.ID, &t)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err)
	}
	s.afterWrite(ctx, events.TaskDeleted, id, nil)
	return nil
}

// ReplaceOrCreate overwrites all mutable fields of task id. If id is
// unknown a new task is created from p instead: the given id and
// p.Completed are ignored. created reports which branch ran.
func (s *TaskService) ReplaceOrCreate(ctx context.Context, id int64, p dom.TaskPatch) (t dom.Task, created bool, err error) {
	t, err = s.repo.Replace(ctx, id, p)
	if err == nil {
		s.afterWrite(ctx, events.TaskUpdated, t.ID, &t)
		return t, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return dom.Task{}, false, err
	}
	t, err = s.Create(ctx, p.Draft())
	if err != nil {
		return dom.Task{}, false, err
	}
	return t, true, nil
}

func (s *TaskService) Complete(ctx context.Context, id int64) (dom.Task, error) {
	t, err := s.repo.MarkDone(ctx, id)
	if err != nil {
		return dom.Task{}, mapErr(err)
	}
	s.afterWrite(ctx, events.TaskCompleted, t.ID, &t)
	return t, nil
}

func (s *TaskService) get(ctx context.Context, id int64) (dom.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dom.Task{}, mapErr(err)
	}
	return t, nil
}

// fill stores a freshly loaded value unless a write happened since gen was
// read. A write that lands while set runs may already have invalidated, so
// the entries are dropped again in that case.
func (s *TaskService) fill(ctx context.Context, gen uint64, set func() error, what string, ids ...int64) {
	if s.gen.Load() != gen {
		return
	}
	if err := set(); err != nil {
		s.log.Warnw("cache set "+what, "ids", ids, "error", err)
		return
	}
	if s.gen.Load() != gen {
		if err := s.cache.Invalidate(ctx, ids...); err != nil {
			s.log.Warnw("cache invalidate", "ids", ids, "error", err)
		}
	}
}

func (s *TaskService) afterWrite(ctx context.Context, kind string, id int64, t *dom.Task) {
	if s.cache != nil {
		s.gen.Add(1)
		// Reads started after this write must not join an older flight.
		s.sf.Forget("list")
		s.sf.Forget("task:" + strconv.FormatInt(id, 10))
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.Warnw("cache invalidate", "id", id, "error", err)
		}
	}
	if s.events != nil {
		s.events.Publish(events.Event{Type: kind, TaskID: id, Task: t})
	}
}

func mapErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
