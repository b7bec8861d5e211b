// Package browser holds the state behind the music browser: the dataset,
// the searched or match-ordered view of it, and the current page.
package browser

import (
	"net/url"
	"strings"

	"github.com/himanishpuri/audiosearch/pkg/models"
)

// MusicItem is one dataset file. Similarity is set only on items that came
// from a similarity query.
type MusicItem struct {
	Filename   string   `json:"filename"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Matched reports whether the item carries a similarity score.
func (m MusicItem) Matched() bool {
	return m.Similarity != nil
}

// PlayURL is the playback endpoint for a dataset file.
func PlayURL(filename string) string {
	return "/api/audio/play/" + url.PathEscape(filename)
}

// ItemsFromFilenames wraps filenames as unmatched items, keeping order.
func ItemsFromFilenames(files []string) []MusicItem {
	items := make([]MusicItem, len(files))
	for i, f := range files {
		items[i] = MusicItem{Filename: f}
	}
	return items
}

// Filter keeps the items whose filename contains term, ignoring case, in
// their original order. Returned items never carry a similarity.
func Filter(items []MusicItem, term string) []MusicItem {
	needle := strings.ToLower(term)
	out := make([]MusicItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Filename), needle) {
			out = append(out, MusicItem{Filename: it.Filename})
		}
	}
	return out
}

// MergeMatches orders the dataset for a query result: matched items first,
// in the order given and carrying their similarity, then every other
// dataset item in original order without one. Matches naming files outside
// the dataset, and repeats of a filename, are skipped. No matches yields
// an empty view.
func MergeMatches(dataset []MusicItem, matches []models.AudioMatch) []MusicItem {
	if len(matches) == 0 {
		return []MusicItem{}
	}

	known := make(map[string]struct{}, len(dataset))
	for _, it := range dataset {
		known[it.Filename] = struct{}{}
	}

	out := make([]MusicItem, 0, len(dataset))
	matched := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := known[m.Filename]; !ok {
			continue
		}
		if _, dup := matched[m.Filename]; dup {
			continue
		}
		matched[m.Filename] = struct{}{}
		sim := m.Similarity
		out = append(out, MusicItem{Filename: m.Filename, Similarity: &sim})
	}

	for _, it := range dataset {
		if _, ok := matched[it.Filename]; ok {
			continue
		}
		out = append(out, MusicItem{Filename: it.Filename})
	}
	return out
}
