// Package catalog loads the promoted-song list from a YAML file and exposes
// it through the SongCatalog port. The file is the source of truth the
// static site is generated from; entries keep their file order.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
	"github.com/ewilliams-labs/nextsong/internal/core/ports"
)

type fileEntry struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title" validate:"required"`
	Genres       string `yaml:"genres"`
	Needs        string `yaml:"needs"`
	URL          string `yaml:"url" validate:"omitempty,uri"`
	PlaylistURL  string `yaml:"playlist_url" validate:"omitempty,url"`
	StreamingURL string `yaml:"streaming_url" validate:"omitempty,url"`
	CoverURL     string `yaml:"cover_url"`
	Quote        string `yaml:"quote"`
}

type fileFormat struct {
	Songs []fileEntry `yaml:"songs"`
}

// Catalog is an immutable, ordered song list.
type Catalog struct {
	songs []domain.Song
}

// compile-time interface assertion
var _ ports.SongCatalog = (*Catalog)(nil)

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog from YAML. Entries without an id get a generated
// one; comma-separated tag fields are normalized into ordered tag lists.
func Parse(r io.Reader) (*Catalog, error) {
	var raw fileFormat
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(raw.Songs) == 0 {
		return nil, fmt.Errorf("no songs defined")
	}

	validate := validator.New()
	songs := make([]domain.Song, 0, len(raw.Songs))
	for i, entry := range raw.Songs {
		if err := validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("song %d (%q): %w", i, entry.Title, err)
		}

		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}

		songs = append(songs, domain.Song{
			ID:           id,
			Title:        entry.Title,
			Genres:       domain.ParseTags(entry.Genres),
			Needs:        domain.ParseTags(entry.Needs),
			URL:          entry.URL,
			PlaylistURL:  entry.PlaylistURL,
			StreamingURL: entry.StreamingURL,
			CoverURL:     entry.CoverURL,
			Quote:        entry.Quote,
		})
	}

	return &Catalog{songs: songs}, nil
}

// Songs returns the ordered song list. The slice is copied so callers
// cannot mutate the catalog.
func (c *Catalog) Songs(ctx context.Context) ([]domain.Song, error) {
	out := make([]domain.Song, len(c.songs))
	copy(out, c.songs)
	return out, nil
}
