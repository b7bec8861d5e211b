// Package album provides the placeholder album grid.
package album

import "fmt"

// GridSize is the number of placeholder albums on the grid.
const GridSize = 12

type Album struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Placeholders returns albums 1..n named album<i>.wav.
func Placeholders(n int) []Album {
	if n <= 0 {
		return []Album{}
	}
	albums := make([]Album, n)
	for i := range albums {
		albums[i] = Album{ID: i + 1, Name: fmt.Sprintf("album%d.wav", i+1)}
	}
	return albums
}
