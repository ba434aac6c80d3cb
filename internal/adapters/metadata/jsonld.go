// Package metadata extracts genre tags from the structured-data blocks
// embedded in the site's pages. Pages carry JSON-LD script blocks with a
// "genre" field that is either a string or a list of strings; anything
// malformed is logged and skipped, never fatal.
package metadata

import (
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
)

// Extractor pulls page genres out of JSON-LD blocks.
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger.With().Str("component", "metadata").Logger()}
}

// GenresFromHTML parses an HTML document and collects genre tags from every
// <script type="application/ld+json"> block, normalized and deduplicated in
// document order. A page without structured data yields no genres.
func (e *Extractor) GenresFromHTML(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var blocks []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && isJSONLD(n) {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			blocks = append(blocks, sb.String())
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return e.GenresFromBlocks(blocks), nil
}

// GenresFromBlocks collects genre tags from raw JSON-LD block contents.
func (e *Extractor) GenresFromBlocks(blocks []string) []string {
	seen := make(map[string]struct{})
	var genres []string

	add := func(raw string) {
		tag := domain.NormalizeTag(raw)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		genres = append(genres, tag)
	}

	for i, block := range blocks {
		var node any
		if err := json.Unmarshal([]byte(block), &node); err != nil {
			e.logger.Warn().Err(err).Int("block", i).Msg("skipping malformed structured data")
			continue
		}
		collectGenres(node, add)
	}

	return genres
}

func isJSONLD(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "type" && strings.EqualFold(strings.TrimSpace(attr.Val), "application/ld+json") {
			return true
		}
	}
	return false
}

// collectGenres walks a decoded JSON-LD value looking for "genre" fields.
// Top-level arrays and "@graph" wrappers are descended into.
func collectGenres(node any, add func(string)) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectGenres(item, add)
		}
	case map[string]any:
		if genre, ok := v["genre"]; ok {
			switch g := genre.(type) {
			case string:
				add(g)
			case []any:
				for _, item := range g {
					if s, ok := item.(string); ok {
						add(s)
					}
				}
			}
		}
		if graph, ok := v["@graph"]; ok {
			collectGenres(graph, add)
		}
	}
}
