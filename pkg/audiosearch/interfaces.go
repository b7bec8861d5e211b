package audiosearch

import (
	"context"
	"errors"

	"github.com/himanishpuri/audiosearch/pkg/models"
)

var (
	ErrTrackNotFound     = errors.New("track not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

type Service interface {
	IndexTrack(ctx context.Context, audioPath, filename string) (string, error)
	Match(ctx context.Context, audioPath string) (*models.QueryResult, error)
	MatchHashes(ctx context.Context, hashes map[uint32]uint32) (*models.QueryResult, error)
	GetTrack(trackID string) (*models.Track, error)
	GetTrackByFilename(filename string) (*models.Track, error)
	ListTracks() ([]models.Track, error)
	DeleteTrack(trackID string) error
	Stats() (models.Stats, error)
	Close() error
}

type Storage interface {
	RegisterTrack(filename, title, artist string, durationMs int) (string, error)
	StoreFingerprints(fingerprints map[uint32][]models.Couple) error
	DeleteFingerprints(trackID string) error
	GetCouplesByHashes(hashes []uint32) (map[uint32][]models.Couple, error)
	GetTrackByID(trackID string) (*models.Track, error)
	GetTrackByFilename(filename string) (*models.Track, error)
	GetTracksByIDs(ids []string) (map[string]models.Track, error)
	GetFingerprintCount(trackID string) (int, error)
	TotalFingerprints() (int64, error)
	ListTracks() ([]models.Track, error)
	DeleteTrackByID(trackID string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
