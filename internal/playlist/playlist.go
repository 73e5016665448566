// Package playlist parses extended M3U playlist text into raw entries.
// Parsing is lexical only: classification and catalog structure are layered
// on top by the catalog package.
package playlist

import "time"

// Entry is one EXTINF/URL line pair from the playlist. Immutable once parsed.
type Entry struct {
	// Extinf is the original directive line, kept for diagnostics.
	Extinf string `json:"extinf"`

	LogoURL    string `json:"logo_url,omitempty"`
	TVGName    string `json:"tvg_name,omitempty"`
	TVGID      string `json:"tvg_id,omitempty"`
	GroupTitle string `json:"group_title,omitempty"`

	// DurationSeconds is the signed duration from the directive; -1 means
	// live / unknown.
	DurationSeconds int `json:"duration_seconds"`

	// Title is the resolved display title: tvg-name, else the free text after
	// the last comma of the directive, else "Unknown". Never empty.
	Title string `json:"title"`

	// StreamURL is taken verbatim from the line following the directive and
	// treated as an opaque resource locator.
	StreamURL string `json:"stream_url"`
}

// Playlist is the output of one successful parse. Never mutated after Parse.
type Playlist struct {
	Entries   []Entry           `json:"entries"`
	Header    map[string]string `json:"header"`
	ParsedAt  time.Time         `json:"parsed_at"`
	SourceURL string            `json:"source_url"`
}
