package model

import "time"

// EventLevel classifies task event log entries.
type EventLevel string

const (
	EventStatus   EventLevel = "status"
	EventProgress EventLevel = "progress"
	EventTrack    EventLevel = "track"
	EventError    EventLevel = "error"
	EventInfo     EventLevel = "info"
)

// TaskEvent is one append-only log entry tied to a task. Events are never
// mutated; old entries are pruned periodically to bound table growth.
type TaskEvent struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID    int64      `json:"taskId" gorm:"index;not null"`
	Level     EventLevel `json:"level" gorm:"size:16;not null"`
	Message   string     `json:"message" gorm:"size:2048"`
	Payload   string     `json:"payload,omitempty" gorm:"type:text"` // optional JSON blob
	CreatedAt time.Time  `json:"createdAt"`
}

// TableName maps TaskEvent to its table.
func (TaskEvent) TableName() string { return "task_events" }
