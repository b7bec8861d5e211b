package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/audiosearch/pkg/models"
)

type fakeSource struct {
	files []string
	err   error
}

func (f fakeSource) GetDataset(context.Context) ([]string, error) {
	return f.files, f.err
}

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Errorf(format string, args ...any) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Debugf(string, ...any) {}

func names(items []MusicItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Filename
	}
	return out
}

func numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("track%02d.wav", i+1)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoad(t *testing.T) {
	log := &recordingLogger{}
	b := New(log)

	b.Load(context.Background(), fakeSource{files: []string{"x.wav", "y.mp3"}})

	if b.Loading() {
		t.Error("loading should be cleared after Load")
	}
	if got := names(b.Filtered()); !equal(got, []string{"x.wav", "y.mp3"}) {
		t.Errorf("filtered = %v", got)
	}
	if len(log.errors) != 0 {
		t.Errorf("unexpected errors logged: %v", log.errors)
	}
}

func TestLoadFailureLeavesEmpty(t *testing.T) {
	log := &recordingLogger{}
	b := New(log)
	b.SetDataset([]string{"stale.wav"})

	b.Load(context.Background(), fakeSource{err: errors.New("connection refused")})

	if b.Loading() {
		t.Error("loading should be cleared after a failed Load")
	}
	if len(b.Items()) != 0 || len(b.Filtered()) != 0 {
		t.Errorf("expected empty browser, got %v", names(b.Filtered()))
	}
	if len(log.errors) != 1 || !strings.Contains(log.errors[0], "connection refused") {
		t.Errorf("expected the fetch error to be logged, got %v", log.errors)
	}
	if !b.NoResults() {
		t.Error("expected empty state after failure")
	}
}

func TestBeginLoadIsNotNoResults(t *testing.T) {
	b := New(&recordingLogger{})
	b.BeginLoad()
	if !b.Loading() || b.NoResults() {
		t.Error("an in-flight load should show loading, not the empty state")
	}
}

func TestFilterExample(t *testing.T) {
	items := ItemsFromFilenames([]string{"a", "b", "ab"})
	got := names(Filter(items, "a"))
	if !equal(got, []string{"a", "ab"}) {
		t.Errorf("Filter(a) = %v, want [a ab]", got)
	}
}

func TestFilterMatchesExtension(t *testing.T) {
	items := ItemsFromFilenames([]string{"a.wav", "b.wav", "ab.mp3"})
	got := names(Filter(items, "a"))
	if !equal(got, []string{"a.wav", "b.wav", "ab.mp3"}) {
		t.Errorf("Filter(a) = %v, want every name (the term is a plain substring)", got)
	}
	got = names(Filter(items, ".WAV"))
	if !equal(got, []string{"a.wav", "b.wav"}) {
		t.Errorf("Filter(.WAV) = %v, want [a.wav b.wav]", got)
	}
}

func TestFilterProperties(t *testing.T) {
	items := ItemsFromFilenames([]string{
		"Rock_Anthem.WAV", "jazz.mp3", "rockabilly.flac", "Classical.ogg", "ROCK.mid",
	})
	master := make(map[string]bool)
	for _, it := range items {
		master[it.Filename] = true
	}

	for _, term := range []string{"", "rock", "ROCK", ".wav", "zzz", "a"} {
		t.Run(term, func(t *testing.T) {
			got := Filter(items, term)
			last := -1
			for _, it := range got {
				if !master[it.Filename] {
					t.Errorf("%s is not in the dataset", it.Filename)
				}
				if !strings.Contains(strings.ToLower(it.Filename), strings.ToLower(term)) {
					t.Errorf("%s does not contain %q", it.Filename, term)
				}
				if it.Matched() {
					t.Errorf("%s carries a similarity", it.Filename)
				}
				idx := indexOf(items, it.Filename)
				if idx <= last {
					t.Errorf("original order not kept at %s", it.Filename)
				}
				last = idx
			}
		})
	}

	if got := Filter(items, "rock"); len(got) != 3 {
		t.Errorf("expected 3 case-insensitive hits for rock, got %v", names(got))
	}
	if got := Filter(items, ""); len(got) != len(items) {
		t.Errorf("empty term should keep everything, got %d", len(got))
	}
}

func indexOf(items []MusicItem, name string) int {
	for i, it := range items {
		if it.Filename == name {
			return i
		}
	}
	return -1
}

func TestSearchTermResetsPage(t *testing.T) {
	b := New(&recordingLogger{})
	b.SetDataset(numbered(40))
	b.Next()
	b.Next()
	if b.Page() != 3 {
		t.Fatalf("page = %d, want 3", b.Page())
	}

	b.SetSearchTerm("track1")
	if b.Page() != 1 {
		t.Errorf("page = %d after search, want 1", b.Page())
	}
	if got := len(b.Filtered()); got != 10 {
		t.Errorf("track1 should match track10..track19, got %d", got)
	}
}

func TestSetDatasetReappliesTerm(t *testing.T) {
	b := New(&recordingLogger{})
	b.SetSearchTerm("song")
	b.SetDataset([]string{"song1.wav", "other.wav", "SONG2.mp3"})

	if got := names(b.Filtered()); !equal(got, []string{"song1.wav", "SONG2.mp3"}) {
		t.Errorf("filtered = %v", got)
	}
}

func TestMergeMatches(t *testing.T) {
	dataset := ItemsFromFilenames([]string{"a.wav", "b.wav", "c.wav", "d.wav", "e.wav"})
	matches := []models.AudioMatch{
		{Filename: "d.wav", Similarity: 91.5},
		{Filename: "b.wav", Similarity: 40},
	}

	got := MergeMatches(dataset, matches)

	if !equal(names(got), []string{"d.wav", "b.wav", "a.wav", "c.wav", "e.wav"}) {
		t.Fatalf("merged order = %v", names(got))
	}
	if len(got) != len(dataset) {
		t.Errorf("length = %d, want %d", len(got), len(dataset))
	}
	for i, it := range got {
		if i < len(matches) {
			if it.Similarity == nil || *it.Similarity != matches[i].Similarity {
				t.Errorf("item %d (%s) similarity = %v, want %v", i, it.Filename, it.Similarity, matches[i].Similarity)
			}
		} else if it.Matched() {
			t.Errorf("item %d (%s) should have no similarity", i, it.Filename)
		}
	}
}

func TestMergeMatchesEmpty(t *testing.T) {
	dataset := ItemsFromFilenames([]string{"a.wav"})
	if got := MergeMatches(dataset, nil); len(got) != 0 {
		t.Errorf("expected empty view, got %v", names(got))
	}
}

func TestMergeMatchesSkipsUnknownAndDuplicates(t *testing.T) {
	dataset := ItemsFromFilenames([]string{"a.wav", "b.wav"})
	matches := []models.AudioMatch{
		{Filename: "ghost.wav", Similarity: 99},
		{Filename: "b.wav", Similarity: 80},
		{Filename: "b.wav", Similarity: 10},
	}

	got := MergeMatches(dataset, matches)
	if !equal(names(got), []string{"b.wav", "a.wav"}) {
		t.Fatalf("merged = %v", names(got))
	}
	if *got[0].Similarity != 80 {
		t.Errorf("first occurrence should win, got %v", *got[0].Similarity)
	}
}

func TestApplyMatches(t *testing.T) {
	b := New(&recordingLogger{})
	b.SetDataset(numbered(30))
	b.Next()

	b.ApplyMatches([]models.AudioMatch{{Filename: "track25.wav", Similarity: 77.7}}, 42*time.Millisecond)

	if b.Page() != 1 {
		t.Errorf("page = %d, want 1", b.Page())
	}
	if !b.Matched() {
		t.Error("expected match view")
	}
	first := b.Displayed()[0]
	if first.Filename != "track25.wav" || first.Similarity == nil || *first.Similarity != 77.7 {
		t.Errorf("first displayed = %+v", first)
	}
	if d, ok := b.ExecutionTime(); !ok || d != 42*time.Millisecond {
		t.Errorf("execution time = %v, %v", d, ok)
	}

	b.SetSearchTerm("")
	if b.Matched() || b.Filtered()[0].Filename != "track01.wav" {
		t.Error("a search term change should drop the match ordering")
	}
}

func TestApplyMatchesEmpty(t *testing.T) {
	b := New(&recordingLogger{})
	b.SetDataset(numbered(5))

	b.ApplyMatches(nil, time.Second)

	if len(b.Displayed()) != 0 || !b.NoResults() {
		t.Errorf("expected no results, displayed %v", names(b.Displayed()))
	}
	if _, ok := b.ExecutionTime(); ok {
		t.Error("execution time should not be recorded for an empty result")
	}
	if b.Page() != 1 || b.TotalPages() != 0 {
		t.Errorf("page %d of %d, want 1 of 0", b.Page(), b.TotalPages())
	}
}

func TestApplyResult(t *testing.T) {
	b := New(&recordingLogger{})
	b.SetDataset([]string{"a.wav", "b.wav"})

	b.ApplyResult(&models.QueryResult{
		Matches:         []models.AudioMatch{{Filename: "b.wav", Similarity: 12.5}},
		ExecutionTimeMs: 3.5,
	})

	if names(b.Filtered())[0] != "b.wav" {
		t.Errorf("filtered = %v", names(b.Filtered()))
	}
	if d, _ := b.ExecutionTime(); d != 3500*time.Microsecond {
		t.Errorf("execution time = %v, want 3.5ms", d)
	}

	b.ApplyResult(nil)
	if !b.NoResults() {
		t.Error("nil result should show no results")
	}
}

func TestDisplayedPages(t *testing.T) {
	b := New(&recordingLogger{})
	b.SetDataset(numbered(30))

	if b.TotalPages() != 3 {
		t.Fatalf("total pages = %d, want 3", b.TotalPages())
	}
	if got := names(b.Displayed()); len(got) != PageSize || got[0] != "track01.wav" {
		t.Errorf("page 1 = %v", got)
	}
	b.Goto(3)
	if got := names(b.Displayed()); len(got) != 6 || got[0] != "track25.wav" {
		t.Errorf("page 3 = %v", got)
	}
	if b.HasNext() || !b.HasPrev() {
		t.Error("last page: want no next, has prev")
	}
}

func TestPlayURL(t *testing.T) {
	tests := map[string]string{
		"a.wav":          "/api/audio/play/a.wav",
		"my song.mp3":    "/api/audio/play/my%20song.mp3",
		"rock&roll.flac": "/api/audio/play/rock&roll.flac",
		"100%.wav":       "/api/audio/play/100%25.wav",
	}
	for in, want := range tests {
		if got := PlayURL(in); got != want {
			t.Errorf("PlayURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSuggest(t *testing.T) {
	items := ItemsFromFilenames([]string{"sandstorm.wav", "starlight.mp3", "jazz.ogg"})

	got := Suggest(items, "sndstrm", 3)
	if len(got) == 0 || got[0] != "sandstorm.wav" {
		t.Errorf("Suggest(sndstrm) = %v", got)
	}
	if got := Suggest(items, "s", 1); len(got) != 1 {
		t.Errorf("limit not applied: %v", got)
	}
	if got := Suggest(items, "", 3); got != nil {
		t.Errorf("empty term should suggest nothing, got %v", got)
	}
}

func TestView(t *testing.T) {
	b := New(&recordingLogger{})
	b.SetDataset(numbered(14))
	b.Next()

	v := b.View()
	if v.Page != 2 || v.TotalPages != 2 || v.Total != 14 || v.HasNext || !v.HasPrev {
		t.Errorf("unexpected view %+v", v)
	}
	if len(v.Items) != 2 || v.Items[0].Filename != "track13.wav" {
		t.Errorf("items = %v", names(v.Items))
	}
}
