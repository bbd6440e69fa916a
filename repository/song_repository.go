package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"TrackVault/db"
	"TrackVault/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrDuplicateSong is returned by Create when the (user, source kind,
// canonical URL) uniqueness constraint fires. Callers resolve the race by
// re-querying for the entry the concurrent winner created.
var ErrDuplicateSong = errors.New("song already exists for this source URL")

// SongRepository defines the library entry operations the orchestration needs.
type SongRepository interface {
	// FindByCanonicalURL returns all entries for the key, newest first.
	FindByCanonicalURL(userID int64, kind model.SourceKind, canonicalURL string) ([]*model.Song, error)
	Create(song *model.Song) error
	UpdatePaths(id int64, absolutePath, relativePath string) error
	Delete(id int64) error
}

// hashSourceURL digests a canonical URL for the uniqueness index. URLs can be
// far wider than InnoDB's 3072-byte index key ceiling allows under utf8mb4,
// so the index covers this fixed-width digest instead of the URL itself.
func hashSourceURL(canonicalURL string) string {
	sum := sha256.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])
}

type gormSongRepository struct {
	db *gorm.DB
}

// NewSongRepository creates a SongRepository backed by the shared GORM connection.
func NewSongRepository() SongRepository {
	return &gormSongRepository{db: db.GormDB}
}

// NewSongRepositoryWithDB creates a SongRepository on an explicit connection.
func NewSongRepositoryWithDB(gdb *gorm.DB) SongRepository {
	return &gormSongRepository{db: gdb}
}

func (r *gormSongRepository) FindByCanonicalURL(userID int64, kind model.SourceKind, canonicalURL string) ([]*model.Song, error) {
	var songs []*model.Song
	err := r.db.
		Where("user_id = ? AND source_kind = ? AND source_hash = ?", userID, kind, hashSourceURL(canonicalURL)).
		Order("created_at DESC").
		Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for %s: %w", canonicalURL, err)
	}
	return songs, nil
}

func (r *gormSongRepository) Create(song *model.Song) error {
	song.SourceHash = hashSourceURL(song.SourceURL)
	if err := r.db.Create(song).Error; err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrDuplicateSong
		}
		return fmt.Errorf("failed to create song %q: %w", song.Title, err)
	}
	return nil
}

func (r *gormSongRepository) UpdatePaths(id int64, absolutePath, relativePath string) error {
	err := r.db.Model(&model.Song{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"file_path":     absolutePath,
			"relative_path": relativePath,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update paths for song %d: %w", id, err)
	}
	return nil
}

func (r *gormSongRepository) Delete(id int64) error {
	if err := r.db.Delete(&model.Song{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete song %d: %w", id, err)
	}
	return nil
}
