// Package dataset manages the directory of audio files that make up the
// searchable dataset.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/himanishpuri/audiosearch/pkg/utils"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidFilename = errors.New("invalid or disallowed filename")
	ErrFileNotFound    = errors.New("dataset file not found")
)

var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".mid":  true,
	".midi": true,
}

// Allowed reports whether name has a dataset file extension.
func Allowed(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Sanitize reduces an uploaded filename to a safe base name. Directories
// are dropped and accented letters are folded to ASCII via NFKD. Whitespace
// becomes '_', anything else outside [A-Za-z0-9._-] is removed, and leading
// dots or underscores are trimmed.
func Sanitize(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(norm.NFKD.String(name)))

	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(name), "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	clean := strings.TrimLeft(b.String(), "._")

	if clean == "" || !Allowed(clean) || clean == filepath.Ext(clean) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidFilename)
	}
	return clean, nil
}

// Entry is a dataset file with its size and modification time.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

type Store struct {
	dir string
}

// NewStore opens the dataset directory, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := utils.MakeDir(dir); err != nil {
		return nil, fmt.Errorf("creating dataset dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Entries lists the allowed files in the directory, sorted by name.
func (s *Store) Entries() ([]Entry, error) {
	des, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir: %w", err)
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if !de.Type().IsRegular() || strings.HasPrefix(de.Name(), ".") || !Allowed(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// List returns the dataset filenames sorted by name.
func (s *Store) List() ([]string, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

// GetDataset lists the dataset for the music browser.
func (s *Store) GetDataset(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.List()
}

// Save writes r under the sanitised form of name, replacing any file of
// that name, and returns the stored name.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	clean, err := Sanitize(name)
	if err != nil {
		return "", err
	}
	if _, err := utils.WriteFileAtomic(filepath.Join(s.dir, clean), r); err != nil {
		return "", err
	}
	return clean, nil
}

// Import copies a file from disk into the dataset.
func (s *Store) Import(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.Save(filepath.Base(path), f)
}

// Path resolves an existing dataset file. Names must be plain base names.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || !Allowed(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidFilename)
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return "", fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	return path, nil
}

// Open opens a dataset file for reading.
func (s *Store) Open(name string) (*os.File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s *Store) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
