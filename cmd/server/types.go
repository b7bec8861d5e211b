package main

import (
	"fmt"

	"github.com/himanishpuri/audiosearch/internal/album"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/fingerprint"
)

// Hash limit constants for validation
const (
	// MaxHashesHardLimit is the absolute maximum allowed (~2 minutes of audio)
	MaxHashesHardLimit = 50000

	// HashWarningThreshold triggers logging for large hash batches
	HashWarningThreshold = 5000
)

// MatchHashesRequest is the request body for POST /api/audio/match/hashes.
// Keys are packed hashes, values the anchor times in milliseconds.
type MatchHashesRequest struct {
	Hashes map[uint32]uint32 `json:"hashes"`
}

// Validate checks if the request is valid
func (r *MatchHashesRequest) Validate() error {
	if len(r.Hashes) == 0 {
		return fmt.Errorf("hashes cannot be empty")
	}
	if len(r.Hashes) > MaxHashesHardLimit {
		return fmt.Errorf("too many hashes: %d (maximum: %d)", len(r.Hashes), MaxHashesHardLimit)
	}
	for hash := range r.Hashes {
		if !fingerprint.IsValidHash(hash) {
			return fmt.Errorf("invalid hash format: %d", hash)
		}
	}
	return nil
}

// DeleteFileResponse is the response for DELETE /api/audio/dataset/{filename}
type DeleteFileResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	TrackID  string `json:"trackId,omitempty"`
}

// AlbumPage is the response for GET /api/albums
type AlbumPage struct {
	Items      []album.Album `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	Total      int           `json:"total"`
}
