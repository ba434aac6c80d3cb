package domain

import "strings"

// Song represents one entry in the externally supplied catalog.
// Optional fields are absent when empty; a song is eligible for
// recommendation ("published") only once its URL is set.
type Song struct {
	ID     string
	Title  string
	Genres []string // lowercase, trimmed, first-seen order
	Needs  []string // spiritual-need tags, same normalization as Genres

	URL          string // publish URL; empty means unpublished
	PlaylistURL  string // optional
	StreamingURL string // optional
	CoverURL     string // optional
	Quote        string // optional
}

// Published reports whether the song has a publish URL and may be recommended.
func (s Song) Published() bool {
	return s.URL != ""
}

// HasGenre reports whether tag appears in the song's genre list.
// The tag is expected to be normalized already.
func (s Song) HasGenre(tag string) bool {
	for _, g := range s.Genres {
		if g == tag {
			return true
		}
	}
	return false
}

// NormalizeTag lowercases and trims a single genre or need tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// ParseTags splits a comma-separated tag string into normalized tags,
// preserving first-seen order and dropping empties and duplicates.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		tag := NormalizeTag(part)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
