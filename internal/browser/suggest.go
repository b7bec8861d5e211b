package browser

import "github.com/sahilm/fuzzy"

// Suggest returns up to limit dataset filenames that fuzzy-match term,
// best first. It backs the empty search state, where the substring
// filter found nothing.
func Suggest(items []MusicItem, term string, limit int) []string {
	if term == "" || limit <= 0 {
		return nil
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Filename
	}

	found := fuzzy.Find(term, names)
	out := make([]string, 0, min(limit, len(found)))
	for _, m := range found {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
