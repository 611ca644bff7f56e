package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyList = "tasks:list"
	keyItem = "tasks:item:"
)

// TaskCache caches the task list and single tasks in Redis.
// A miss is reported as (nil, nil) for lists and (_, false, nil) for items.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskCache returns a new TaskCache.
func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

// GetList returns cached list or nil if miss.
func (c *TaskCache) GetList(ctx context.Context) ([]dom.Task, error) {
	b, err := c.rdb.Get(ctx, keyList).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := []dom.Task{}
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores the list in cache.
func (c *TaskCache) SetList(ctx context.Context, list []dom.Task) error {
	if list == nil {
		list = []dom.Task{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyList, b, c.ttl).Err()
}

func (c *TaskCache) GetTask(ctx context.Context, id int64) (dom.Task, bool, error) {
	b, err := c.rdb.Get(ctx, itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dom.Task{}, false, nil
	}
	if err != nil {
		return dom.Task{}, false, err
	}
	var t dom.Task
	if err := json.Unmarshal(b, &t); err != nil {
		return dom.Task{}, false, err
	}
	return t, true, nil
}

func (c *TaskCache) SetTask(ctx context.Context, t dom.Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, itemKey(t.ID), b, c.ttl).Err()
}

// Invalidate drops the list and the given items (cache invalidation on write).
func (c *TaskCache) Invalidate(ctx context.Context, ids ...int64) error {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, keyList)
	for _, id := range ids {
		keys = append(keys, itemKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateAll removes the list and every cached item.
func (c *TaskCache) InvalidateAll(ctx context.Context) error {
	if err := c.rdb.Del(ctx, keyList).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, keyItem+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func itemKey(id int64) string {
	return keyItem + strconv.FormatInt(id, 10)
}
