package acquire

import (
	"context"

	"TrackVault/logger"
	"TrackVault/repository"

	"github.com/redis/go-redis/v9"
)

const workerSlotsKey = "trackvault:worker_slots"

// Scheduler bounds how many tasks run concurrently across all processes
// using a Redis counter, and drains queued tasks into free slots. Drain is
// idempotent and safe to call redundantly: slot accounting only bounds
// dispatch, while the claim update in the task repository is what guarantees
// exclusivity.
type Scheduler struct {
	rdb        *redis.Client
	tasks      repository.TaskRepository
	maxWorkers int
	runTask    func(ctx context.Context, taskID int64) error
}

// NewScheduler creates a scheduler. Wire the manager in with SetRunner
// before calling Dispatch or Drain.
func NewScheduler(rdb *redis.Client, tasks repository.TaskRepository, maxWorkers int) *Scheduler {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Scheduler{rdb: rdb, tasks: tasks, maxWorkers: maxWorkers}
}

// SetRunner wires the function that actually processes a claimed task.
func (s *Scheduler) SetRunner(runTask func(ctx context.Context, taskID int64) error) {
	s.runTask = runTask
}

// tryAcquireSlot reserves one worker slot, returning false at the ceiling.
func (s *Scheduler) tryAcquireSlot(ctx context.Context) bool {
	n, err := s.rdb.Incr(ctx, workerSlotsKey).Result()
	if err != nil {
		logger.Error("worker slot acquire failed", logger.ErrorField(err))
		return false
	}
	if n > int64(s.maxWorkers) {
		s.releaseSlot(ctx)
		return false
	}
	return true
}

func (s *Scheduler) releaseSlot(ctx context.Context) {
	if n, err := s.rdb.Decr(ctx, workerSlotsKey).Result(); err == nil && n < 0 {
		// Counter drifted below zero (e.g. a flushed key); clamp it.
		s.rdb.Set(ctx, workerSlotsKey, 0, 0)
	}
}

// Dispatch runs one task on its own goroutine if a slot is free. When all
// slots are busy the task stays queued; a later Drain picks it up.
func (s *Scheduler) Dispatch(ctx context.Context, taskID int64) {
	if s.runTask == nil {
		logger.Error("scheduler has no runner wired")
		return
	}
	if !s.tryAcquireSlot(ctx) {
		logger.Info("worker ceiling reached, task stays queued",
			logger.Int64("taskID", taskID))
		return
	}
	go func() {
		defer s.releaseSlot(context.Background())
		if err := s.runTask(context.Background(), taskID); err != nil {
			logger.Error("task run failed",
				logger.Int64("taskID", taskID), logger.ErrorField(err))
		}
	}()
}

// Drain dispatches queued tasks up to the worker ceiling. Safe to call
// redundantly from several workers; losers of the claim race no-op.
func (s *Scheduler) Drain(ctx context.Context) {
	queued, err := s.tasks.ListQueued(s.maxWorkers)
	if err != nil {
		logger.Error("drain failed to list queued tasks", logger.ErrorField(err))
		return
	}
	for _, task := range queued {
		s.Dispatch(ctx, task.ID)
	}
}
