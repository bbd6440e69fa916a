package repository

import (
	"fmt"

	"TrackVault/db"
	"TrackVault/model"

	"gorm.io/gorm"
)

// EventRepository appends and prunes task event log entries.
type EventRepository interface {
	Append(event *model.TaskEvent) error
	// TrimToNewest deletes all but the newest keep events for a task.
	TrimToNewest(taskID int64, keep int) error
}

type gormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates an EventRepository backed by the shared GORM connection.
func NewEventRepository() EventRepository {
	return &gormEventRepository{db: db.GormDB}
}

// NewEventRepositoryWithDB creates an EventRepository on an explicit connection.
func NewEventRepositoryWithDB(gdb *gorm.DB) EventRepository {
	return &gormEventRepository{db: gdb}
}

func (r *gormEventRepository) Append(event *model.TaskEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to append event for task %d: %w", event.TaskID, err)
	}
	return nil
}

func (r *gormEventRepository) TrimToNewest(taskID int64, keep int) error {
	// Find the cutoff id, then delete everything older. Two statements keep
	// this portable across MySQL versions that reject LIMIT in subqueries.
	var cutoff []int64
	err := r.db.Model(&model.TaskEvent{}).
		Where("task_id = ?", taskID).
		Order("id DESC").
		Offset(keep - 1).
		Limit(1).
		Pluck("id", &cutoff).Error
	if err != nil {
		return fmt.Errorf("failed to find trim cutoff for task %d: %w", taskID, err)
	}
	if len(cutoff) == 0 {
		return nil // fewer than keep events
	}
	err = r.db.Where("task_id = ? AND id < ?", taskID, cutoff[0]).
		Delete(&model.TaskEvent{}).Error
	if err != nil {
		return fmt.Errorf("failed to trim events for task %d: %w", taskID, err)
	}
	return nil
}
