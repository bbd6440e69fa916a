package repository

import (
	"fmt"
	"time"

	"TrackVault/db"
	"TrackVault/model"

	"gorm.io/gorm"
)

// TaskRepository defines the task state operations the orchestration needs.
// Counters are applied as atomic increments at the datastore; callers never
// read-modify-write task progress from application memory.
type TaskRepository interface {
	GetByID(id int64) (*model.DownloadTask, error)
	// Claim transitions queued -> running only if the task is still queued,
	// stamping workerHandle and startedAt. Returns nil when another worker
	// won the claim.
	Claim(id int64, workerHandle string) (*model.DownloadTask, error)
	Heartbeat(id int64) error
	// SetTotalItems sets the definitive item count. It only takes effect
	// once: a non-zero totalItems is never overwritten.
	SetTotalItems(id int64, total int) error
	SetPlaylistInfo(id int64, isPlaylist bool, title string) error
	IncrementCounts(id int64, processed, successful, failed int) error
	// Finish moves a running task to a terminal status exactly once.
	Finish(id int64, status model.TaskStatus, errorMessage string) error
	ListQueued(limit int) ([]*model.DownloadTask, error)
}

type gormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a TaskRepository backed by the shared GORM connection.
func NewTaskRepository() TaskRepository {
	return &gormTaskRepository{db: db.GormDB}
}

// NewTaskRepositoryWithDB creates a TaskRepository on an explicit connection.
func NewTaskRepositoryWithDB(gdb *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: gdb}
}

func (r *gormTaskRepository) GetByID(id int64) (*model.DownloadTask, error) {
	var task model.DownloadTask
	err := r.db.First(&task, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %d: %w", id, err)
	}
	return &task, nil
}

func (r *gormTaskRepository) Claim(id int64, workerHandle string) (*model.DownloadTask, error) {
	now := time.Now()
	res := r.db.Model(&model.DownloadTask{}).
		Where("id = ? AND status = ?", id, model.TaskQueued).
		Updates(map[string]interface{}{
			"status":            model.TaskRunning,
			"worker_handle":     workerHandle,
			"started_at":        now,
			"last_heartbeat_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim task %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Another worker already claimed it, or the task is not queued.
		return nil, nil
	}
	return r.GetByID(id)
}

func (r *gormTaskRepository) Heartbeat(id int64) error {
	err := r.db.Model(&model.DownloadTask{}).
		Where("id = ?", id).
		Update("last_heartbeat_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to heartbeat task %d: %w", id, err)
	}
	return nil
}

func (r *gormTaskRepository) SetTotalItems(id int64, total int) error {
	err := r.db.Model(&model.DownloadTask{}).
		Where("id = ? AND total_items = 0", id).
		Update("total_items", total).Error
	if err != nil {
		return fmt.Errorf("failed to set total items for task %d: %w", id, err)
	}
	return nil
}

func (r *gormTaskRepository) SetPlaylistInfo(id int64, isPlaylist bool, title string) error {
	err := r.db.Model(&model.DownloadTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_playlist":    isPlaylist,
			"playlist_title": title,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to set playlist info for task %d: %w", id, err)
	}
	return nil
}

func (r *gormTaskRepository) IncrementCounts(id int64, processed, successful, failed int) error {
	updates := map[string]interface{}{}
	if processed != 0 {
		updates["processed_items"] = gorm.Expr("processed_items + ?", processed)
	}
	if successful != 0 {
		updates["successful_items"] = gorm.Expr("successful_items + ?", successful)
	}
	if failed != 0 {
		updates["failed_items"] = gorm.Expr("failed_items + ?", failed)
	}
	if len(updates) == 0 {
		return nil
	}
	err := r.db.Model(&model.DownloadTask{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to increment counts for task %d: %w", id, err)
	}
	return nil
}

func (r *gormTaskRepository) Finish(id int64, status model.TaskStatus, errorMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("refusing to finish task %d with non-terminal status %s", id, status)
	}
	res := r.db.Model(&model.DownloadTask{}).
		Where("id = ? AND status = ?", id, model.TaskRunning).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
			"completed_at":  time.Now(),
			"worker_handle": "",
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finish task %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %d was not running, terminal transition skipped", id)
	}
	return nil
}

func (r *gormTaskRepository) ListQueued(limit int) ([]*model.DownloadTask, error) {
	var tasks []*model.DownloadTask
	q := r.db.Where("status = ?", model.TaskQueued).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list queued tasks: %w", err)
	}
	return tasks, nil
}
