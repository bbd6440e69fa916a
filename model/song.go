package model

import "time"

// Song is a resolved, filed library asset.
//
// For a given (user, source kind, canonical source URL) there is intended to
// be at most one live entry whose file still exists on disk. The dedup engine
// upholds this softly; creation races are resolved by catching the uniqueness
// conflict and re-querying.
type Song struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     int64      `json:"userId" gorm:"not null;uniqueIndex:idx_user_kind_hash,priority:1"`
	SourceKind SourceKind `json:"sourceKind" gorm:"size:32;not null;uniqueIndex:idx_user_kind_hash,priority:2"`
	SourceURL  string     `json:"sourceUrl" gorm:"size:2048;not null"` // canonical form
	// SourceHash is the SHA-256 hex digest of SourceURL, maintained by the
	// repository. InnoDB caps index keys at 3072 bytes, well under a utf8mb4
	// URL column, so uniqueness is enforced on this fixed-width digest.
	SourceHash   string    `json:"-" gorm:"size:64;not null;uniqueIndex:idx_user_kind_hash,priority:3"`
	FilePath     string    `json:"-" gorm:"size:2048"`            // absolute path on disk
	RelativePath string    `json:"relativePath" gorm:"size:1024"` // path under the storage root
	Title        string    `json:"title" gorm:"size:512"`
	Artist       string    `json:"artist" gorm:"size:512"`
	Album        string    `json:"album" gorm:"size:512"`
	TrackNumber  int       `json:"trackNumber"`
	DiscNumber   int       `json:"discNumber"`
	Year         int       `json:"year"`
	Duration     float64   `json:"duration"` // seconds
	Quality      string    `json:"quality" gorm:"size:32"`
	CoverPath    string    `json:"coverPath" gorm:"size:1024"`
	TaskID       int64     `json:"taskId" gorm:"index"`
	PlaylistID   *int64    `json:"playlistId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName maps Song to its table.
func (Song) TableName() string { return "songs" }
