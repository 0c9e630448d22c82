package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklist-api/internal/domain"
	"github.com/phrazzld/tasklist-api/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

// TaskListCache caches task list pages in Redis.
// Redis failures are logged and reported as misses, never returned.
type TaskListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var errStaleGeneration = errors.New("task list generation changed")

// getter is satisfied by both *redis.Client and the *redis.Tx of a WATCH.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// NewTaskListCache creates a cache over client. Pages expire ttl after the
// most recent write to the user's hash; a non-positive ttl disables writes.
func NewTaskListCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *TaskListCache {
	if log == nil {
		log = slog.Default()
	}
	return &TaskListCache{
		client: client,
		ttl:    max(ttl, 0),
		logger: log.With(slog.String("component", "task_list_cache")),
	}
}

// Connect parses a redis:// URL, opens a client and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Get returns the cached page, or false on a miss or any Redis error.
// It also returns the list generation the lookup ran under; a caller that
// fills the cache after a miss passes it back to Set. The generation is -1
// when it could not be read.
func (c *TaskListCache) Get(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Task, int64, bool) {
	if c.client == nil {
		return nil, -1, false
	}

	gen, err := c.generation(ctx, c.client, userID)
	if err != nil {
		c.log(ctx).Warn("task list cache read failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, -1, false
	}

	data, err := c.client.HGet(ctx, pageKey(userID, gen), field(offset, limit)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log(ctx).Warn("task list cache read failed",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
			return nil, -1, false
		}
		return nil, gen, false
	}

	var tasks []*domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		c.log(ctx).Warn("dropping unreadable task list cache entry",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		c.Invalidate(ctx, userID)
		return nil, -1, false
	}
	return tasks, gen, true
}

// Set stores a page read under generation gen and refreshes the expiry of
// the user's hash. The write is skipped if the list has been invalidated
// since gen was observed.
func (c *TaskListCache) Set(ctx context.Context, userID uuid.UUID, gen int64, offset, limit int, tasks []*domain.Task) {
	if c.client == nil || c.ttl == 0 || gen < 0 {
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}

	gk := genKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}

		pk := pageKey(userID, gen)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, pk, field(offset, limit), data)
			pipe.Expire(ctx, pk, c.ttl)
			pipe.Expire(ctx, gk, c.genTTL())
			return nil
		})
		return err
	}, gk)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.log(ctx).Debug("skipped stale task list cache fill",
			slog.Int64("generation", gen),
			slog.String("user_id", userID.String()))
	default:
		c.log(ctx).Warn("task list cache write failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
	}
}

// Invalidate bumps the user's list generation, which orphans every cached
// page and rejects fills still holding the old generation. The previous
// generation's hash is deleted; anything missed expires with its TTL.
func (c *TaskListCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c.client == nil {
		return
	}

	gk := genKey(userID)
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, gk)
		pipe.Expire(ctx, gk, c.genTTL())
		return nil
	})
	if err != nil {
		c.log(ctx).Warn("task list cache invalidation failed",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return
	}

	if err := c.client.Del(ctx, pageKey(userID, incr.Val()-1)).Err(); err != nil {
		c.log(ctx).Debug("failed to drop superseded task list pages",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
	}
}

// generation reads the user's list generation; an absent key is generation 0.
func (c *TaskListCache) generation(ctx context.Context, r getter, userID uuid.UUID) (int64, error) {
	gen, err := r.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// genTTL is longer than any page TTL, so the generation key cannot expire
// and restart at 0 while a page hash from an older generation is live.
func (c *TaskListCache) genTTL() time.Duration {
	return max(2*c.ttl, time.Hour)
}

func (c *TaskListCache) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, c.logger)
}

func genKey(userID uuid.UUID) string {
	return "tasks:" + userID.String() + ":gen"
}

func pageKey(userID uuid.UUID, gen int64) string {
	return "tasks:" + userID.String() + ":" + strconv.FormatInt(gen, 10)
}

func field(offset, limit int) string {
	return strconv.Itoa(offset) + ":" + strconv.Itoa(limit)
}
