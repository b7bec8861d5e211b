package browser

import (
	"context"
	"time"

	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/himanishpuri/audiosearch/pkg/models"
)

// DatasetSource supplies the dataset filenames.
type DatasetSource interface {
	GetDataset(ctx context.Context) ([]string, error)
}

// Logger is the subset of the logger used by the browser.
type Logger interface {
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Browser is the state of one music browser. It is owned by a single
// goroutine (a bubbletea program or one request) and is not safe for
// concurrent use.
type Browser struct {
	log Logger

	items    []MusicItem
	filtered []MusicItem
	term     string
	matched  bool
	pager    Pager
	loading  bool

	execTime    time.Duration
	hasExecTime bool
}

// New returns an empty browser on page 1. A nil log uses the package logger.
func New(log Logger) *Browser {
	if log == nil {
		log = logger.GetLogger().With("browser")
	}
	return &Browser{
		log:      log,
		items:    []MusicItem{},
		filtered: []MusicItem{},
		pager:    NewPager(0),
	}
}

// Load fetches the dataset from src. A failed fetch is logged and leaves
// the browser empty.
func (b *Browser) Load(ctx context.Context, src DatasetSource) {
	b.BeginLoad()
	files, err := src.GetDataset(ctx)
	b.FinishLoad(files, err)
}

// BeginLoad marks a dataset fetch as in flight.
func (b *Browser) BeginLoad() {
	b.loading = true
}

// FinishLoad applies the outcome of a dataset fetch started with BeginLoad.
func (b *Browser) FinishLoad(files []string, err error) {
	b.loading = false
	if err != nil {
		b.log.Errorf("Error fetching musics: %v", err)
		b.SetDataset(nil)
		return
	}
	b.log.Debugf("Loaded %d dataset files", len(files))
	b.SetDataset(files)
}

// SetDataset replaces the dataset and re-applies the current search term.
func (b *Browser) SetDataset(files []string) {
	b.items = ItemsFromFilenames(files)
	b.refilter()
}

// SetSearchTerm filters the dataset by term, dropping any match ordering.
func (b *Browser) SetSearchTerm(term string) {
	b.term = term
	b.refilter()
}

func (b *Browser) refilter() {
	b.matched = false
	b.filtered = Filter(b.items, b.term)
	b.pager.Reset(len(b.filtered))
}

// ApplyMatches shows a query result: matched files first with their
// similarity, then the rest of the dataset. No matches empties the view.
// The execution time is kept only for non-empty results.
func (b *Browser) ApplyMatches(matches []models.AudioMatch, elapsed time.Duration) {
	b.matched = true
	b.filtered = MergeMatches(b.items, matches)
	b.pager.Reset(len(b.filtered))
	if len(matches) > 0 {
		b.execTime = elapsed
		b.hasExecTime = true
	}
}

// ApplyResult is ApplyMatches for a decoded query response.
func (b *Browser) ApplyResult(res *models.QueryResult) {
	if res == nil {
		b.ApplyMatches(nil, 0)
		return
	}
	elapsed := time.Duration(res.ExecutionTimeMs * float64(time.Millisecond))
	b.ApplyMatches(res.Matches, elapsed)
}

// Items is the full dataset in load order.
func (b *Browser) Items() []MusicItem { return b.items }

// Filtered is the current search or match view.
func (b *Browser) Filtered() []MusicItem { return b.filtered }

// Displayed is the slice of Filtered on the current page.
func (b *Browser) Displayed() []MusicItem {
	start, end := b.pager.Bounds()
	return b.filtered[start:end]
}

func (b *Browser) Term() string { return b.term }
func (b *Browser) Loading() bool { return b.loading }
func (b *Browser) Matched() bool { return b.matched }
func (b *Browser) Page() int { return b.pager.Page }
func (b *Browser) TotalPages() int { return b.pager.TotalPages() }
func (b *Browser) HasNext() bool { return b.pager.HasNext() }
func (b *Browser) HasPrev() bool { return b.pager.HasPrev() }
func (b *Browser) Next() { b.pager.Next() }
func (b *Browser) Prev() { b.pager.Prev() }
func (b *Browser) Goto(page int) { b.pager.Goto(page) }
func (b *Browser) Total() int { return b.pager.Total }
func (b *Browser) NoResults() bool { return !b.loading && len(b.filtered) == 0 }

// ExecutionTime is the duration of the last non-empty query.
func (b *Browser) ExecutionTime() (time.Duration, bool) {
	return b.execTime, b.hasExecTime
}

// PageView is one page of the browser as served over the API.
type PageView struct {
	Items      []MusicItem `json:"items"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	Total      int         `json:"total"`
	HasNext    bool        `json:"hasNext"`
	HasPrev    bool        `json:"hasPrev"`
}

// View captures the current page.
func (b *Browser) View() PageView {
	return PageView{
		Items:      b.Displayed(),
		Page:       b.Page(),
		TotalPages: b.TotalPages(),
		Total:      b.Total(),
		HasNext:    b.HasNext(),
		HasPrev:    b.HasPrev(),
	}
}
