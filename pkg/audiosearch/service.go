package audiosearch

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/himanishpuri/audiosearch/pkg/audiosearch/audio"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/fingerprint"
	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/himanishpuri/audiosearch/pkg/models"
)

// searchService is the default implementation of the Service interface.
type searchService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &searchService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// IsIndexable reports whether a dataset file can be fingerprinted.
// MIDI files are browsable but carry no audio to analyse.
func IsIndexable(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return false
	}
	return true
}

// analysis is a decoded clip reduced to peaks.
type analysis struct {
	peaks      []fingerprint.Peak
	durationMs int
}

// analyse decodes audioPath into peaks. Files that are already mono WAV at
// the configured rate are read directly; anything else goes through ffmpeg.
func (s *searchService) analyse(ctx context.Context, audioPath string) (*analysis, error) {
	sampleRate := s.config.SampleRate
	samples, err := audio.LoadMono(ctx, audioPath, s.config.TempDir, sampleRate)
	if err != nil {
		return nil, err
	}

	spec, err := fingerprint.ComputeSpectrogramFromSamples(samples, sampleRate, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("spectrogram generation failed: %w", err)
	}

	duration := float64(len(samples)) / float64(sampleRate)
	return &analysis{
		peaks:      fingerprint.ExtractPeaks(spec, sampleRate),
		durationMs: int(duration * 1000),
	}, nil
}

// IndexTrack fingerprints audioPath and stores it under filename.
// Re-indexing an existing filename replaces its fingerprints.
func (s *searchService) IndexTrack(ctx context.Context, audioPath, filename string) (string, error) {
	if filename == "" {
		filename = filepath.Base(audioPath)
	}
	if !IsIndexable(filename) {
		return "", fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
	s.log.Infof("Indexing track: %s", filename)

	a, err := s.analyse(ctx, audioPath)
	if err != nil {
		return "", err
	}
	s.log.Debugf("Extracted %d peaks from %s", len(a.peaks), filename)

	meta := audio.ReadMetadata(audioPath)
	if meta.Title == strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath)) {
		meta.Title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	_, lookupErr := s.storage.GetTrackByFilename(filename)
	existed := lookupErr == nil

	trackID, err := s.storage.RegisterTrack(filename, meta.Title, meta.Artist, a.durationMs)
	if err != nil {
		return "", fmt.Errorf("failed to register track: %w", err)
	}
	if existed {
		if err := s.storage.DeleteFingerprints(trackID); err != nil {
			return "", fmt.Errorf("failed to clear old fingerprints: %w", err)
		}
	}

	fps := fingerprint.Fingerprint(a.peaks, trackID)
	s.log.Debugf("Generated %d unique hashes", len(fps))

	if err := s.storage.StoreFingerprints(fps); err != nil {
		s.storage.DeleteTrackByID(trackID) // Rollback
		return "", fmt.Errorf("failed to store fingerprints: %w", err)
	}

	s.log.Infof("Indexed %s as %s (%d hashes)", filename, trackID, len(fps))
	return trackID, nil
}

// Match finds dataset tracks similar to the clip at audioPath.
func (s *searchService) Match(ctx context.Context, audioPath string) (*models.QueryResult, error) {
	start := time.Now()
	s.log.Infof("Matching audio: %s", filepath.Base(audioPath))

	a, err := s.analyse(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	query := fingerprint.QueryHashes(a.peaks)
	s.log.Debugf("Query has %d peaks, %d hashes", len(a.peaks), len(query))

	return s.matchQuery(ctx, query, start)
}

// MatchHashes matches hashes computed by a client (hash -> anchor ms).
func (s *searchService) MatchHashes(ctx context.Context, hashes map[uint32]uint32) (*models.QueryResult, error) {
	return s.matchQuery(ctx, hashes, time.Now())
}

func (s *searchService) matchQuery(ctx context.Context, query map[uint32]uint32, start time.Time) (*models.QueryResult, error) {
	result := &models.QueryResult{Matches: []models.AudioMatch{}}
	if len(query) == 0 {
		result.ExecutionTimeMs = elapsedMs(start)
		return result, nil
	}

	db, err := s.storage.GetCouplesByHashes(fingerprint.Hashes(query))
	if err != nil {
		return nil, fmt.Errorf("fingerprint lookup failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.log.Debugf("Retrieved couples for %d/%d hashes", len(db), len(query))

	candidates := fingerprint.MatchHashes(query, db)

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.TrackID
	}
	tracks, err := s.storage.GetTracksByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("track lookup failed: %w", err)
	}

	for _, c := range candidates {
		track, ok := tracks[c.TrackID]
		if !ok {
			s.log.Warnf("Match references unknown track %s", c.TrackID)
			continue
		}

		dbCount, err := s.storage.GetFingerprintCount(c.TrackID)
		if err != nil {
			s.log.Warnf("Failed to get fingerprint count for %s: %v", track.Filename, err)
			dbCount = len(query)
		}

		similarity := calculateSimilarity(c.Count, len(query), dbCount)
		if similarity <= 0 || similarity < s.config.MinSimilarity {
			continue
		}
		result.Matches = append(result.Matches, models.AudioMatch{
			Filename:   track.Filename,
			Similarity: similarity,
			Score:      c.Count,
			OffsetMs:   c.OffsetMs,
		})
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Similarity > result.Matches[j].Similarity
	})
	if s.config.MaxMatches > 0 && len(result.Matches) > s.config.MaxMatches {
		result.Matches = result.Matches[:s.config.MaxMatches]
	}

	result.ExecutionTimeMs = elapsedMs(start)
	s.log.Infof("Query matched %d tracks in %.2fms", len(result.Matches), result.ExecutionTimeMs)
	return result, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// calculateSimilarity turns an aligned-hash count into a 0-100 score.
// The ratio uses the smaller of the query and track hash counts so short
// clips are not penalised against long tracks; a logistic curve centred
// at 15% overlap spreads the scores, very strong overlaps get a boost and
// fewer than five aligned hashes are scaled down as unreliable.
func calculateSimilarity(matchCount, queryFPCount, dbFPCount int) float64 {
	if matchCount == 0 || queryFPCount == 0 || dbFPCount == 0 {
		return 0.0
	}

	ref := min(queryFPCount, dbFPCount)
	ratio := float64(matchCount) / float64(ref)

	const (
		steepness = 20.0
		midpoint  = 0.15
	)

	similarity := 100.0 / (1.0 + math.Exp(-steepness*(ratio-midpoint)))

	if ratio > 0.30 {
		similarity = math.Min(100.0, similarity+(ratio-0.30)*50)
	}

	if matchCount < 5 {
		similarity *= float64(matchCount) / 5.0
	}

	return similarity
}

func (s *searchService) GetTrack(trackID string) (*models.Track, error) {
	return s.storage.GetTrackByID(trackID)
}

func (s *searchService) GetTrackByFilename(filename string) (*models.Track, error) {
	return s.storage.GetTrackByFilename(filename)
}

func (s *searchService) ListTracks() ([]models.Track, error) {
	return s.storage.ListTracks()
}

// DeleteTrack removes a track and all its fingerprints.
func (s *searchService) DeleteTrack(trackID string) error {
	return s.storage.DeleteTrackByID(trackID)
}

func (s *searchService) Stats() (models.Stats, error) {
	tracks, err := s.storage.ListTracks()
	if err != nil {
		return models.Stats{}, err
	}
	fps, err := s.storage.TotalFingerprints()
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{TrackCount: len(tracks), FingerprintCount: fps}, nil
}

func (s *searchService) Close() error {
	return s.storage.Close()
}
