// Package tui renders the music browser and the album grid in a terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/audiosearch/internal/browser"
	"github.com/himanishpuri/audiosearch/pkg/models"
)

// Matcher runs a similarity query for a clip on disk.
type Matcher interface {
	Query(ctx context.Context, path string) (*models.QueryResult, error)
}

// MatcherFunc adapts a function such as Service.Match to Matcher.
type MatcherFunc func(ctx context.Context, path string) (*models.QueryResult, error)

func (f MatcherFunc) Query(ctx context.Context, path string) (*models.QueryResult, error) {
	return f(ctx, path)
}

type datasetMsg struct {
	files []string
	err   error
}

type queryResultMsg struct {
	result *models.QueryResult
	err    error
}

type musicMode int

const (
	modeSearch musicMode = iota
	modeQuery
)

const queryTimeout = 2 * time.Minute

const (
	emptyDatasetHint = "Start by uploading some musics to your dataset (audiosearch index <files>)."
	noMatchHint      = "No musics match your search criteria. Try a different query music or upload more musics to the dataset."
)

// MusicModel is the music browser page.
type MusicModel struct {
	browser *browser.Browser
	source  browser.DatasetSource
	matcher Matcher
	playURL func(string) string

	search textinput.Model
	query  textinput.Model
	mode   musicMode

	querying bool
	lastErr  error
}

// NewMusicModel builds the browser page. playURL turns a filename into the
// link shown on its card; nil uses the relative API path.
func NewMusicModel(source browser.DatasetSource, matcher Matcher, playURL func(string) string) MusicModel {
	if playURL == nil {
		playURL = browser.PlayURL
	}

	search := textinput.New()
	search.Placeholder = "Search music..."
	search.Prompt = "/ "
	search.CharLimit = 128
	search.Width = cardWidth*gridColumns - 4
	search.Focus()

	query := textinput.New()
	query.Placeholder = "path/to/clip.wav"
	query.Prompt = "clip: "
	query.Width = cardWidth*gridColumns - 10

	b := browser.New(nil)
	b.BeginLoad()

	return MusicModel{
		browser: b,
		source:  source,
		matcher: matcher,
		playURL: playURL,
		search:  search,
		query:   query,
	}
}

// Browser exposes the underlying state.
func (m MusicModel) Browser() *browser.Browser {
	return m.browser
}

func (m MusicModel) Init() tea.Cmd {
	return tea.Batch(m.loadDataset(), textinput.Blink)
}

func (m MusicModel) loadDataset() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		files, err := source.GetDataset(context.Background())
		return datasetMsg{files: files, err: err}
	}
}

func (m MusicModel) runQuery(path string) tea.Cmd {
	matcher := m.matcher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		res, err := matcher.Query(ctx, path)
		return queryResultMsg{result: res, err: err}
	}
}

func (m MusicModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case datasetMsg:
		m.browser.FinishLoad(msg.files, msg.err)
		return m, nil

	case queryResultMsg:
		m.querying = false
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.browser.ApplyResult(msg.result)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "pgdown", "ctrl+n":
			m.browser.Next()
			return m, nil
		case "pgup", "ctrl+p":
			m.browser.Prev()
			return m, nil
		}
		if m.mode == modeQuery {
			return m.updateQuery(msg)
		}
		return m.updateSearch(msg)
	}

	return m, nil
}

func (m MusicModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "ctrl+o":
		if m.matcher == nil || m.querying {
			return m, nil
		}
		m.mode = modeQuery
		m.search.Blur()
		cmd := m.query.Focus()
		return m, cmd
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.browser.SetSearchTerm(m.search.Value())
	}
	return m, cmd
}

func (m MusicModel) updateQuery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeSearch
		m.query.Blur()
		cmd := m.search.Focus()
		return m, cmd
	case "enter":
		path := strings.TrimSpace(m.query.Value())
		if path == "" {
			return m, nil
		}
		m.mode = modeSearch
		m.querying = true
		m.lastErr = nil
		m.query.SetValue("")
		m.query.Blur()
		cmd := m.search.Focus()
		return m, tea.Batch(cmd, m.runQuery(path))
	}

	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

func (m MusicModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Music Library"))
	b.WriteString("\n\n")

	if m.browser.Loading() {
		b.WriteString(loadingStyle.Render("Loading..."))
		b.WriteString("\n")
		return b.String()
	}

	box := inputBoxStyle
	if m.mode == modeSearch {
		box = focusedInputBoxStyle
	}
	b.WriteString(box.Render(m.search.View()))
	b.WriteString("\n")

	if m.mode == modeQuery {
		b.WriteString(focusedInputBoxStyle.Render(m.query.View()))
		b.WriteString("\n")
	}
	if m.querying {
		b.WriteString(loadingStyle.Render("Querying..."))
		b.WriteString("\n")
	}
	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("Query failed: " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	if d, ok := m.browser.ExecutionTime(); ok {
		ms := float64(d.Microseconds()) / 1000
		b.WriteString(subtleStyle.Render(fmt.Sprintf("Query executed in %.2fms", ms)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.browser.NoResults() {
		b.WriteString(m.emptyView())
	} else {
		b.WriteString(m.gridView())
		b.WriteString("\n\n")
		b.WriteString(m.pagerView())
	}
	b.WriteString("\n\n")

	help := "type to search • pgup/pgdown page • esc quit"
	if m.matcher != nil {
		help = "type to search • ctrl+o query a clip • pgup/pgdown page • esc quit"
	}
	b.WriteString(subtleStyle.Render(help))
	return b.String()
}

func (m MusicModel) emptyView() string {
	out := emptyStyle.Render("No Musics Found")
	if len(m.browser.Items()) == 0 {
		return out + "\n" + subtleStyle.Render(emptyDatasetHint)
	}
	out += "\n" + subtleStyle.Render(noMatchHint)
	if m.browser.Matched() || m.browser.Term() == "" {
		return out
	}
	if hints := browser.Suggest(m.browser.Items(), m.browser.Term(), 3); len(hints) > 0 {
		out += "\n" + subtleStyle.Render("Did you mean: "+strings.Join(hints, ", "))
	}
	return out
}

func (m MusicModel) card(it browser.MusicItem) string {
	name := it.Filename
	if r := []rune(name); len(r) > cardWidth-2 {
		name = string(r[:cardWidth-5]) + "..."
	}

	lines := []string{name}
	style := cardStyle
	if it.Similarity != nil {
		lines = append(lines, badgeStyle.Render(fmt.Sprintf("%.1f%% Match", *it.Similarity)))
		style = matchedCardStyle
	}
	lines = append(lines, subtleStyle.Render("▶ "+m.playURL(it.Filename)))
	return style.Render(strings.Join(lines, "\n"))
}

func (m MusicModel) gridView() string {
	items := m.browser.Displayed()
	rows := make([]string, 0, (len(items)+gridColumns-1)/gridColumns)
	for i := 0; i < len(items); i += gridColumns {
		end := min(i+gridColumns, len(items))
		cards := make([]string, 0, gridColumns)
		for _, it := range items[i:end] {
			cards = append(cards, m.card(it))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m MusicModel) pagerView() string {
	prev, next := disabledButtonStyle.Render("Previous"), disabledButtonStyle.Render("Next")
	if m.browser.HasPrev() {
		prev = buttonStyle.Render("Previous")
	}
	if m.browser.HasNext() {
		next = buttonStyle.Render("Next")
	}
	status := fmt.Sprintf("Page %d of %d • %s files", m.browser.Page(), max(1, m.browser.TotalPages()),
		humanize.Comma(int64(m.browser.Total())))
	return lipgloss.JoinHorizontal(lipgloss.Center, prev, "   ", subtleStyle.Render(status), "   ", next)
}
