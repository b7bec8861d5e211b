package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/himanishpuri/audiosearch/internal/album"
	"github.com/himanishpuri/audiosearch/internal/browser"
	"github.com/himanishpuri/audiosearch/internal/dataset"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/audio"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/fingerprint"
	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/himanishpuri/audiosearch/pkg/models"
	"github.com/himanishpuri/audiosearch/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service audiosearch.Service
	dataset *dataset.Store
	config  *ServerConfig
	log     audiosearch.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// NewServer creates a new server instance
func NewServer(service audiosearch.Service, store *dataset.Store, config *ServerConfig) *Server {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 2 * time.Minute
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 32 << 20
	}
	return &Server{
		service: service,
		dataset: store,
		config:  config,
		log:     logger.GetLogger().With("server"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondFileError maps dataset lookup failures to 400/404/500.
func (s *Server) respondFileError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, dataset.ErrInvalidFilename):
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid filename: %s", name))
	case errors.Is(err, dataset.ErrFileNotFound):
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("File %s not found", name))
	default:
		s.log.Errorf("Dataset access failed for %s: %v", name, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to access dataset file")
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "audiosearch API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"metrics":       "GET /api/health/metrics",
			"dataset":       "GET /api/audio/dataset",
			"uploadDataset": "POST /api/audio/dataset",
			"deleteFile":    "DELETE /api/audio/dataset/{filename}",
			"query":         "POST /api/audio/upload",
			"matchHashes":   "POST /api/audio/match/hashes",
			"play":          "GET /api/audio/play/{filename}",
			"spectrogram":   "GET /api/audio/spectrogram/{filename}",
			"browse":        "GET /api/audio/browse?q=&page=",
			"albums":        "GET /api/albums?page=",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to get index stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}
	files, err := s.dataset.List()
	if err != nil {
		s.log.Errorf("Failed to list dataset: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, models.HealthMetrics{
		Status:            "healthy",
		TotalTracks:       stats.TrackCount,
		TotalFingerprints: stats.FingerprintCount,
		DatasetFiles:      len(files),
	})
}

// handleListDataset handles GET /api/audio/dataset
func (s *Server) handleListDataset(w http.ResponseWriter, r *http.Request) {
	files, err := s.dataset.List()
	if err != nil {
		s.log.Errorf("Failed to list dataset: %v", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, files)
}

// handleUploadDataset handles POST /api/audio/dataset (multipart files[])
func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	headers := r.MultipartForm.File["files[]"]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	resp := models.DatasetUploadResponse{Files: []string{}}
	for _, fh := range headers {
		if fh.Filename == "" || !dataset.Allowed(fh.Filename) {
			resp.Skipped = append(resp.Skipped, fh.Filename)
			continue
		}
		name, err := s.saveUpload(fh)
		if err != nil {
			s.log.Warnf("Skipping upload %q: %v", fh.Filename, err)
			resp.Skipped = append(resp.Skipped, fh.Filename)
			continue
		}
		resp.Files = append(resp.Files, name)

		if !audiosearch.IsIndexable(name) {
			continue
		}
		path, err := s.dataset.Path(name)
		if err == nil {
			_, err = s.service.IndexTrack(ctx, path, name)
		}
		if err != nil {
			// The file stays browsable even when it cannot be fingerprinted.
			s.log.Warnf("Failed to index %s: %v", name, err)
		}
	}

	resp.Message = fmt.Sprintf("Successfully uploaded %d files", len(resp.Files))
	s.log.Infof("Dataset upload: %d stored, %d skipped", len(resp.Files), len(resp.Skipped))
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.dataset.Save(fh.Filename, f)
}

// handleQuery handles POST /api/audio/upload (multipart file)
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "No file part")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "No selected file")
		return
	}

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		s.log.Errorf("Failed to create temp dir: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("query_%d%s", time.Now().UnixNano(), filepath.Ext(header.Filename)))
	if _, err := utils.WriteFileAtomic(tempFile, file); err != nil {
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	defer os.Remove(tempFile)

	s.log.Infof("Matching uploaded file: %s", header.Filename)
	result, err := s.service.Match(ctx, tempFile)
	if err != nil {
		s.log.Errorf("Error processing query: %v", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Infof("Match complete: %d matches in %.2fms", len(result.Matches), result.ExecutionTimeMs)
	s.respondJSON(w, http.StatusOK, result)
}

// handleMatchHashes handles POST /api/audio/match/hashes (WASM clients)
func (s *Server) handleMatchHashes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req MatchHashesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Hashes) >= HashWarningThreshold {
		s.log.Warnf("Large hash batch received: %d hashes", len(req.Hashes))
	}
	s.log.Infof("Matching %d hashes from client", len(req.Hashes))

	result, err := s.service.MatchHashes(ctx, req.Hashes)
	if err != nil {
		s.log.Errorf("Failed to match hashes: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to match hashes: %v", err))
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handlePlay handles GET /api/audio/play/{filename}
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	f, err := s.dataset.Open(name)
	if err != nil {
		s.respondFileError(w, name, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.respondFileError(w, name, err)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleSpectrogram handles GET /api/audio/spectrogram/{filename}
func (s *Server) handleSpectrogram(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	name := r.PathValue("filename")
	path, err := s.dataset.Path(name)
	if err != nil {
		s.respondFileError(w, name, err)
		return
	}
	if !audiosearch.IsIndexable(name) {
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s has no audio to render", name))
		return
	}

	samples, err := audio.LoadMono(ctx, path, s.config.TempDir, s.config.SampleRate)
	if err != nil {
		s.log.Errorf("Failed to decode %s: %v", name, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to decode audio")
		return
	}

	width := queryInt(r, "width", fingerprint.DefaultImageWidth)
	height := queryInt(r, "height", fingerprint.DefaultImageHeight)
	if width > 8192 || height > 4096 {
		s.respondError(w, http.StatusBadRequest, "Requested image is too large")
		return
	}
	img, err := fingerprint.RenderSpectrogram(samples, s.config.SampleRate, width, height)
	if err != nil {
		s.log.Errorf("Failed to render spectrogram for %s: %v", name, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to render spectrogram")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := fingerprint.WritePNG(w, img); err != nil {
		s.log.Errorf("Failed to write spectrogram: %v", err)
	}
}

// handleBrowse handles GET /api/audio/browse?q=&page=
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	b := browser.New(s.log)
	b.Load(r.Context(), s.dataset)
	b.SetSearchTerm(r.URL.Query().Get("q"))
	b.Goto(queryInt(r, "page", 1))
	s.respondJSON(w, http.StatusOK, b.View())
}

// handleDeleteFile handles DELETE /api/audio/dataset/{filename}
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if _, err := s.dataset.Path(name); err != nil {
		s.respondFileError(w, name, err)
		return
	}

	resp := DeleteFileResponse{Message: "File deleted successfully", Filename: name}
	track, err := s.service.GetTrackByFilename(name)
	switch {
	case err == nil:
		if err := s.service.DeleteTrack(track.ID); err != nil && !errors.Is(err, audiosearch.ErrTrackNotFound) {
			s.log.Errorf("Failed to delete track %s: %v", track.ID, err)
			s.respondError(w, http.StatusInternalServerError, "Failed to delete fingerprints")
			return
		}
		resp.TrackID = track.ID
	case !errors.Is(err, audiosearch.ErrTrackNotFound):
		s.log.Errorf("Failed to look up track %s: %v", name, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}

	if err := s.dataset.Remove(name); err != nil {
		s.respondFileError(w, name, err)
		return
	}
	s.log.Infof("Deleted dataset file %s", name)
	s.respondJSON(w, http.StatusOK, resp)
}

// handleAlbums handles GET /api/albums?page=
func (s *Server) handleAlbums(w http.ResponseWriter, r *http.Request) {
	albums := album.Placeholders(album.GridSize)
	p := browser.NewPager(len(albums))
	p.Goto(queryInt(r, "page", 1))
	start, end := p.Bounds()

	s.respondJSON(w, http.StatusOK, AlbumPage{
		Items:      albums[start:end],
		Page:       p.Page,
		TotalPages: p.TotalPages(),
		Total:      len(albums),
	})
}
