package model

import "time"

// SourceKind identifies where a submitted link points.
type SourceKind string

const (
	SourceCatalog    SourceKind = "catalog"     // streaming-catalog link (track, album, playlist or artist)
	SourceVideo      SourceKind = "video"       // direct video-site link
	SourceAudioShare SourceKind = "audio_share" // direct audio-sharing link
)

// TaskStatus is the DownloadTask state machine.
type TaskStatus string

const (
	TaskQueued              TaskStatus = "queued"
	TaskRunning             TaskStatus = "running"
	TaskCompleted           TaskStatus = "completed"
	TaskCompletedWithErrors TaskStatus = "completed_with_errors"
	TaskFailed              TaskStatus = "failed"
)

// IsTerminal reports whether the status can never change again.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskCompletedWithErrors, TaskFailed:
		return true
	}
	return false
}

// DownloadTask is one user-submitted acquisition request: a single track or
// an entire playlist/album/artist catalog.
//
// Invariants: totalItems is set at most once and never decreases; once a
// terminal status is reached processedItems == successfulItems + failedItems;
// at most one worker holds status=running for a given id (enforced by the
// conditional claim update in the repository).
type DownloadTask struct {
	ID              int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID          int64      `json:"userId" gorm:"index;not null"`
	SourceKind      SourceKind `json:"sourceKind" gorm:"size:32;not null"`
	SourceURL       string     `json:"sourceUrl" gorm:"size:2048;not null"`
	TargetFormat    string     `json:"targetFormat" gorm:"size:16"`
	TargetQuality   string     `json:"targetQuality" gorm:"size:32"`
	SourceCodec     string     `json:"sourceCodec" gorm:"size:16"`
	PlaylistID      *int64     `json:"playlistId"`
	Status          TaskStatus `json:"status" gorm:"size:32;index;not null;default:queued"`
	IsPlaylist      bool       `json:"isPlaylist"`
	PlaylistTitle   string     `json:"playlistTitle" gorm:"size:512"`
	TotalItems      int        `json:"totalItems"`
	ProcessedItems  int        `json:"processedItems"`
	SuccessfulItems int        `json:"successfulItems"`
	FailedItems     int        `json:"failedItems"`
	ErrorMessage    string     `json:"errorMessage" gorm:"size:2048"`
	WorkerHandle    string     `json:"-" gorm:"size:64"`
	StartedAt       *time.Time `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	LastHeartbeatAt *time.Time `json:"lastHeartbeatAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName maps DownloadTask to its table.
func (DownloadTask) TableName() string { return "download_tasks" }
