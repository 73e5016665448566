// Package catalog turns parsed playlist entries into a navigable content
// catalog: typed media items grouped into sections and categories, plus a
// series index grouping episodes into sorted seasons.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ContentType is the closed set of media types an entry can classify to.
type ContentType string

const (
	TypeSeries ContentType = "series"
	TypeFilm   ContentType = "film"
	TypeTV     ContentType = "tv"
)

// MediaItem is one catalog entry, derived 1:1 and order-preserving from a
// playlist entry. The ID is index-derived and stable only within a single
// ingested snapshot; re-ingestion may reassign IDs.
type MediaItem struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Thumbnail string      `json:"thumbnail"`
	StreamURL string      `json:"stream_url"`
	Type      ContentType `json:"type"`
	Category  string      `json:"category"`

	// DurationSeconds carries the EXTINF duration; -1 means live/unknown.
	DurationSeconds int `json:"duration_seconds,omitempty"`

	// Series fields are set only when the title matched a series pattern.
	SeriesName    string `json:"series_name,omitempty"`
	SeasonNumber  int    `json:"season_number,omitempty"`
	EpisodeNumber int    `json:"episode_number,omitempty"`
	EpisodeTitle  string `json:"episode_title,omitempty"`
}

// Category groups items sharing one provider-assigned label. For series
// sections Items holds one representative item per distinct series, not the
// full episode list.
type Category struct {
	ID        string      `json:"id"` // slug of Name
	Name      string      `json:"name"`
	Type      ContentType `json:"type"`
	Items     []MediaItem `json:"items"`
	ItemCount int         `json:"item_count"`
}

// Section is one navigation tab: all categories of one content type, in
// first-seen order. Types with no items produce no section.
type Section struct {
	Type       ContentType `json:"type"`
	Label      string      `json:"label"`
	Categories []Category  `json:"categories"`
}

// Series aggregates every episode sharing one series-name slug, across all
// categories. Thumbnail and category come from the first-seen episode.
type Series struct {
	ID        string   `json:"id"` // slug of Name
	Name      string   `json:"name"`
	Thumbnail string   `json:"thumbnail"`
	Category  string   `json:"category"`
	Seasons   []Season `json:"seasons"`
}

// Season holds episodes for one season number, sorted ascending by episode
// number after aggregation.
type Season struct {
	Number   int       `json:"number"`
	Episodes []Episode `json:"episodes"`
}

// Episode is one playable episode.
type Episode struct {
	Number          int    `json:"number"`
	Title           string `json:"title"`
	Thumbnail       string `json:"thumbnail"`
	StreamURL       string `json:"stream_url"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// View is one complete aggregation result. It is built fully off to the side
// and swapped into the Catalog atomically, so readers never observe a
// partially built catalog.
type View struct {
	Items    []MediaItem `json:"items"`
	Sections []Section   `json:"sections"`
	Series   []Series    `json:"series"`
}

// Catalog is the single mutable cell holding the current View. Safe for
// concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	view View
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Replace swaps in a new complete view.
func (c *Catalog) Replace(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

// Snapshot returns a shallow copy of the current view for read-only use.
func (c *Catalog) Snapshot() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := View{
		Items:    make([]MediaItem, len(c.view.Items)),
		Sections: make([]Section, len(c.view.Sections)),
		Series:   make([]Series, len(c.view.Series)),
	}
	copy(v.Items, c.view.Items)
	copy(v.Sections, c.view.Sections)
	copy(v.Series, c.view.Series)
	return v
}

// ItemByID returns the item with the given id, if present.
func (c *Catalog) ItemByID(id string) (MediaItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.view.Items {
		if it.ID == id {
			return it, true
		}
	}
	return MediaItem{}, false
}

// SeriesByID returns the series with the given slug id, if present.
func (c *Catalog) SeriesByID(id string) (Series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.view.Series {
		if s.ID == id {
			return s, true
		}
	}
	return Series{}, false
}

// Save writes the catalog to path as JSON using a temp-file-then-rename
// strategy so readers never see a partially-written file.
func (c *Catalog) Save(path string) error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.view, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, ".catalog-*.json.tmp")
	if err != nil {
		return fmt.Errorf("catalog save: create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("catalog save: write: %w", writeErr)
		}
		return fmt.Errorf("catalog save: close: %w", closeErr)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("catalog save: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("catalog save: rename: %w", err)
	}
	return nil
}

// Load replaces the catalog with the contents of path (JSON).
func (c *Catalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.Replace(v)
	return nil
}
