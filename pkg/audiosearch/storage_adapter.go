package audiosearch

import (
	"errors"

	"github.com/himanishpuri/audiosearch/pkg/audiosearch/storage"
	"github.com/himanishpuri/audiosearch/pkg/models"
)

// storageAdapter maps the SQLite client's errors onto package errors.
type storageAdapter struct {
	*storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{DBClient: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrTrackNotFound
	}
	return err
}

func (s *storageAdapter) GetTrackByID(trackID string) (*models.Track, error) {
	t, err := s.DBClient.GetTrackByID(trackID)
	return t, notFound(err)
}

func (s *storageAdapter) GetTrackByFilename(filename string) (*models.Track, error) {
	t, err := s.DBClient.GetTrackByFilename(filename)
	return t, notFound(err)
}

func (s *storageAdapter) DeleteTrackByID(trackID string) error {
	return notFound(s.DBClient.DeleteTrackByID(trackID))
}
