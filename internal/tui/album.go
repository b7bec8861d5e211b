package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/himanishpuri/audiosearch/internal/album"
)

// AlbumModel is the placeholder album grid with a paginator control.
type AlbumModel struct {
	albums []album.Album
	pages  paginator.Model
}

func NewAlbumModel(perPage int) AlbumModel {
	if perPage <= 0 {
		perPage = album.GridSize
	}
	albums := album.Placeholders(album.GridSize)

	p := paginator.New()
	p.Type = paginator.Dots
	p.PerPage = perPage
	p.ActiveDot = lipgloss.NewStyle().Foreground(colorPurple).Render("•")
	p.InactiveDot = subtleStyle.Render("•")
	p.SetTotalPages(len(albums))

	return AlbumModel{albums: albums, pages: p}
}

func (m AlbumModel) Init() tea.Cmd {
	return nil
}

func (m AlbumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.pages, cmd = m.pages.Update(msg)
	return m, cmd
}

// Visible is the albums on the current page.
func (m AlbumModel) Visible() []album.Album {
	start, end := m.pages.GetSliceBounds(len(m.albums))
	return m.albums[start:end]
}

func (m AlbumModel) Page() int {
	return m.pages.Page
}

func (m AlbumModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Album"))
	b.WriteString("\n\n")

	visible := m.Visible()
	var rows []string
	for i := 0; i < len(visible); i += gridColumns {
		end := min(i+gridColumns, len(visible))
		cards := make([]string, 0, gridColumns)
		for _, a := range visible[i:end] {
			cards = append(cards, cardStyle.Render(a.Name))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n\n  ")
	b.WriteString(m.pages.View())
	b.WriteString("\n\n")
	b.WriteString(subtleStyle.Render("←/→ page • q quit"))
	return b.String()
}
