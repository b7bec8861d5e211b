package audio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

type Metadata struct {
	Filename string
	Title    string
	Artist   string
	Album    string
	Format   string
}

// ReadMetadata reads embedded tags (ID3, MP4, FLAC, OGG). Files without
// tags, such as plain WAV, get the filename stem as title.
func ReadMetadata(path string) *Metadata {
	base := filepath.Base(path)
	meta := &Metadata{
		Filename: base,
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		Artist:   "Unknown Artist",
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), "."),
	}

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return meta
	}

	if t := strings.TrimSpace(m.Title()); t != "" {
		meta.Title = t
	}
	if a := strings.TrimSpace(m.Artist()); a != "" {
		meta.Artist = a
	}
	meta.Album = strings.TrimSpace(m.Album())
	if ft := m.FileType(); ft != tag.UnknownFileType {
		meta.Format = strings.ToLower(string(ft))
	}
	return meta
}
