//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/himanishpuri/audiosearch/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "audiosearch.sqlite3"
const errDBClientNil = "db client is nil"

// hashBatchSize keeps IN (...) lists under SQLite's variable limit.
const hashBatchSize = 500

// ErrNotFound is returned when a track does not exist.
var ErrNotFound = errors.New("track not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Track struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Filename   string `gorm:"uniqueIndex:idx_track_filename" json:"filename"`
	Title      string `gorm:"index:idx_track_meta,priority:1" json:"title"`
	Artist     string `gorm:"index:idx_track_meta,priority:2" json:"artist"`
	DurationMs int    `json:"duration_ms"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Fingerprint struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Hash         uint32 `gorm:"index:idx_hash" json:"hash"`
	TrackID      string `gorm:"type:varchar(36);index:idx_track" json:"track_id"`
	AnchorTimeMs uint32 `json:"anchor_time_ms"`
}

func (t Track) toModel() models.Track {
	return models.Track{
		ID:         t.ID,
		Filename:   t.Filename,
		Title:      t.Title,
		Artist:     t.Artist,
		DurationMs: t.DurationMs,
	}
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("AUDIOSEARCH_DB_PATH")
	if dbPath == "" {
		dbPath = os.Getenv("ACOUSTIC_DB_PATH")
	}
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Track{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

// RegisterTrack returns the id of the track with this filename, creating
// it if needed. An existing track gets its metadata refreshed.
func (c *DBClient) RegisterTrack(filename, title, artist string, durationMs int) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	var track Track
	err := c.DB.Where("filename = ?", filename).First(&track).Error
	if err == nil {
		updates := map[string]any{"title": title, "artist": artist, "duration_ms": durationMs}
		if err := c.DB.Model(&track).Updates(updates).Error; err != nil {
			return "", fmt.Errorf("updating track: %w", err)
		}
		return track.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing track: %w", err)
	}

	track = Track{
		ID:         uuid.NewString(),
		Filename:   filename,
		Title:      title,
		Artist:     artist,
		DurationMs: durationMs,
	}
	if err := c.DB.Create(&track).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent insert of the same filename.
			if fetchErr := c.DB.Where("filename = ?", filename).First(&track).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching track after constraint violation: %w", fetchErr)
			}
			return track.ID, nil
		}
		return "", fmt.Errorf("creating track: %w", err)
	}

	return track.ID, nil
}

func (c *DBClient) DeleteTrackByID(trackID string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", trackID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", trackID).Delete(&Track{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteFingerprints removes every hash of a track, keeping the track row.
func (c *DBClient) DeleteFingerprints(trackID string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.Where("track_id = ?", trackID).Delete(&Fingerprint{}).Error
}

func (c *DBClient) StoreFingerprints(fp map[uint32][]models.Couple) error {
	if err := c.ready(); err != nil {
		return err
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		entries := make([]Fingerprint, 0, 1024)
		for hash, couples := range fp {
			for _, cou := range couples {
				entries = append(entries, Fingerprint{
					Hash:         hash,
					TrackID:      cou.TrackID,
					AnchorTimeMs: cou.AnchorTimeMs,
				})
				if len(entries) >= 1000 {
					if err := tx.CreateInBatches(entries, 500).Error; err != nil {
						return fmt.Errorf("batch insert fingerprints: %w", err)
					}
					entries = entries[:0]
				}
			}
		}
		if len(entries) > 0 {
			if err := tx.CreateInBatches(entries, 500).Error; err != nil {
				return fmt.Errorf("batch insert last fingerprints: %w", err)
			}
		}
		return nil
	})
}

func (c *DBClient) GetCouplesByHash(hash uint32) ([]models.Couple, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []Fingerprint
	if err := c.DB.Where("hash = ?", hash).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	out := make([]models.Couple, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Couple{TrackID: r.TrackID, AnchorTimeMs: r.AnchorTimeMs})
	}
	return out, nil
}

// GetCouplesByHashes looks up many hashes in batches of hashBatchSize.
func (c *DBClient) GetCouplesByHashes(hashes []uint32) (map[uint32][]models.Couple, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	result := make(map[uint32][]models.Couple)

	for start := 0; start < len(hashes); start += hashBatchSize {
		end := min(start+hashBatchSize, len(hashes))

		var rows []Fingerprint
		if err := c.DB.Where("hash IN ?", hashes[start:end]).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("batch querying fingerprints: %w", err)
		}
		for _, r := range rows {
			result[r.Hash] = append(result[r.Hash], models.Couple{
				TrackID:      r.TrackID,
				AnchorTimeMs: r.AnchorTimeMs,
			})
		}
	}

	return result, nil
}

func (c *DBClient) GetTrackByID(trackID string) (*models.Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var t Track
	if err := c.DB.Where("id = ?", trackID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying track: %w", err)
	}
	m := t.toModel()
	return &m, nil
}

func (c *DBClient) GetTrackByFilename(filename string) (*models.Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var t Track
	if err := c.DB.Where("filename = ?", filename).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying track: %w", err)
	}
	m := t.toModel()
	return &m, nil
}

// GetTracksByIDs returns the tracks keyed by id; unknown ids are absent.
func (c *DBClient) GetTracksByIDs(ids []string) (map[string]models.Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	out := make(map[string]models.Track, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []Track
	if err := c.DB.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying tracks: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.toModel()
	}
	return out, nil
}

func (c *DBClient) GetFingerprintCount(trackID string) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	var count int64
	if err := c.DB.Model(&Fingerprint{}).Where("track_id = ?", trackID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (c *DBClient) TotalFingerprints() (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	var count int64
	if err := c.DB.Model(&Fingerprint{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListTracks returns all tracks ordered by filename.
func (c *DBClient) ListTracks() ([]models.Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var rows []Track
	if err := c.DB.Order("filename ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	tracks := make([]models.Track, len(rows))
	for i, r := range rows {
		tracks[i] = r.toModel()
	}
	return tracks, nil
}
