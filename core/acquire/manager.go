// Package acquire owns the DownloadTask lifecycle: claiming, heartbeats,
// event logging, the per-source acquisition pipelines, completion accounting
// and draining of queued work.
package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"TrackVault/config"
	"TrackVault/core/dedup"
	"TrackVault/core/fetch"
	"TrackVault/core/media"
	"TrackVault/core/placer"
	"TrackVault/core/provider"
	"TrackVault/core/runner"
	"TrackVault/logger"
	"TrackVault/model"
	"TrackVault/repository"

	"github.com/google/uuid"
)

const (
	// trimEvery triggers event-log pruning on every Nth appended event.
	trimEvery = 25
	// keepEvents is how many newest events survive a prune.
	keepEvents = 500
)

// Manager is the task lifecycle owner. One Manager serves many concurrent
// tasks; all task state lives in the datastore, never in process memory.
type Manager struct {
	cfg        *config.Config
	tasks      repository.TaskRepository
	events     repository.EventRepository
	songs      repository.SongRepository
	dedupe     *dedup.Engine
	resolver   *provider.Resolver
	extractor  media.Extractor
	transcoder media.Transcoder
	placer     *placer.Placer
	janitor    *placer.Janitor
	fetcher    fetch.Fetcher
	throttle   runner.Throttle
	drain      func(ctx context.Context)
}

// ManagerParams bundles the collaborators a Manager needs.
type ManagerParams struct {
	Cfg        *config.Config
	Tasks      repository.TaskRepository
	Events     repository.EventRepository
	Songs      repository.SongRepository
	Dedup      *dedup.Engine
	Resolver   *provider.Resolver
	Extractor  media.Extractor
	Transcoder media.Transcoder
	Placer     *placer.Placer
	Janitor    *placer.Janitor // optional
	Fetcher    fetch.Fetcher
}

// NewManager creates a Manager.
func NewManager(p ManagerParams) *Manager {
	return &Manager{
		cfg:        p.Cfg,
		tasks:      p.Tasks,
		events:     p.Events,
		songs:      p.Songs,
		dedupe:     p.Dedup,
		resolver:   p.Resolver,
		extractor:  p.Extractor,
		transcoder: p.Transcoder,
		placer:     p.Placer,
		janitor:    p.Janitor,
		fetcher:    p.Fetcher,
		throttle:   runner.Throttle{Min: p.Cfg.ThrottleMin, Max: p.Cfg.ThrottleMax},
	}
}

// SetDrainHook wires the scheduler hook invoked after a task reaches a
// terminal state. The hook must be idempotent.
func (m *Manager) SetDrainHook(drain func(ctx context.Context)) {
	m.drain = drain
}

// taskRun is the in-flight state for one claimed task. Only the event
// counter lives here; all progress counters are datastore increments.
type taskRun struct {
	task       *model.DownloadTask
	eventCount atomic.Int64
}

// RunTask is the worker entry point: claims the task, processes it to a
// terminal state, and drains queued work afterwards. A lost claim is a
// no-op, not an error.
func (m *Manager) RunTask(ctx context.Context, taskID int64) error {
	handle := uuid.NewString()
	task, err := m.tasks.Claim(taskID, handle)
	if err != nil {
		return err
	}
	if task == nil {
		logger.Info("task claim lost, nothing to do", logger.Int64("taskID", taskID))
		return nil
	}

	run := &taskRun{task: task}
	m.logEvent(run, model.EventStatus, "task claimed", map[string]any{"worker": handle})

	// Heartbeats run for the life of processing, independent of item
	// progress, so an external reaper can detect a dead worker.
	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	go m.heartbeatLoop(hbCtx, taskID)

	var procErr error
	func() {
		defer stopHeartbeat()
		defer func() {
			if r := recover(); r != nil {
				procErr = fmt.Errorf("task pipeline panicked: %v", r)
			}
		}()
		procErr = m.process(ctx, run)
	}()

	if procErr != nil {
		m.failTask(run, procErr)
	} else {
		m.completeTask(run)
	}

	if m.drain != nil {
		m.drain(ctx)
	}
	return procErr
}

func (m *Manager) heartbeatLoop(ctx context.Context, taskID int64) {
	interval := m.cfg.HeartbeatEvery
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.tasks.Heartbeat(taskID); err != nil {
				logger.Warn("heartbeat write failed",
					logger.Int64("taskID", taskID), logger.ErrorField(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// process validates the task and dispatches to the source-specific pipeline.
// Any error returned here is task-fatal and becomes a fail() transition.
func (m *Manager) process(ctx context.Context, run *taskRun) error {
	task := run.task
	if task.UserID == 0 {
		return fmt.Errorf("task %d has no owning user", task.ID)
	}
	if _, err := url.ParseRequestURI(task.SourceURL); err != nil {
		return fmt.Errorf("malformed source URL: %w", err)
	}

	switch task.SourceKind {
	case model.SourceCatalog:
		return m.runCatalogPipeline(ctx, run)
	case model.SourceVideo, model.SourceAudioShare:
		return m.runDirectPipeline(ctx, run)
	default:
		return fmt.Errorf("unsupported source kind %q", task.SourceKind)
	}
}

func (m *Manager) completeTask(run *taskRun) {
	fresh, err := m.tasks.GetByID(run.task.ID)
	if err != nil || fresh == nil {
		logger.Error("failed to reload task for completion",
			logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
		return
	}

	status := model.TaskCompleted
	if fresh.FailedItems > 0 {
		status = model.TaskCompletedWithErrors
	}
	if err := m.tasks.Finish(run.task.ID, status, ""); err != nil {
		logger.Error("terminal transition failed",
			logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
		return
	}
	m.logEvent(run, model.EventStatus, "task "+string(status), map[string]any{
		"processed":  fresh.ProcessedItems,
		"successful": fresh.SuccessfulItems,
		"failed":     fresh.FailedItems,
	})
}

func (m *Manager) failTask(run *taskRun, cause error) {
	msg := Redact(cause.Error())
	if err := m.tasks.Finish(run.task.ID, model.TaskFailed, msg); err != nil {
		logger.Error("fail transition failed",
			logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
		return
	}
	m.logEvent(run, model.EventError, "task failed: "+msg, nil)
}

// logEvent appends a task event and prunes the log every trimEvery events.
// Event logging is best effort and never fails the pipeline.
func (m *Manager) logEvent(run *taskRun, level model.EventLevel, message string, payload map[string]any) {
	event := &model.TaskEvent{
		TaskID:  run.task.ID,
		Level:   level,
		Message: Redact(message),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			event.Payload = string(raw)
		}
	}
	if err := m.events.Append(event); err != nil {
		logger.Warn("event append failed",
			logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
		return
	}
	if run.eventCount.Add(1)%trimEvery == 0 {
		if err := m.events.TrimToNewest(run.task.ID, keepEvents); err != nil {
			logger.Warn("event trim failed",
				logger.Int64("taskID", run.task.ID), logger.ErrorField(err))
		}
	}
}
