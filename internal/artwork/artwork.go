// Package artwork resolves poster images for catalog entries whose playlist
// logo is missing or broken, using the TVMaze single-search API.
package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/nsoulassol86/iptv-catalog/internal/catalog"
	"github.com/nsoulassol86/iptv-catalog/internal/httpclient"
)

const defaultEndpoint = "https://api.tvmaze.com/singlesearch/shows"

var (
	episodeMarkRe = regexp.MustCompile(`(?i)\bS\d+\s*E?\d*\b`)
	yearRe        = regexp.MustCompile(`\(\d{4}\)`)
	langSuffixRe  = regexp.MustCompile(`(?i)\b(vostfr|vf|fr|en|multi)\b`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// CleanTitle strips episode markers, release years, and language tags so the
// remainder is a plausible show name for a text search.
// "Dark S01 E01 VOSTFR" becomes "Dark".
func CleanTitle(title string) string {
	s := episodeMarkRe.ReplaceAllString(title, " ")
	s = yearRe.ReplaceAllString(s, " ")
	s = langSuffixRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

type show struct {
	Name  string `json:"name"`
	Image *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
}

// Client looks up poster URLs by title. Results, including misses, are cached
// for the process lifetime: a title that failed once will fail the same way
// again and is not worth re-querying.
type Client struct {
	endpoint string
	http     *http.Client

	mu    sync.Mutex
	cache map[string]string // cleaned title → image URL, "" for a known miss
}

// New returns a Client against the public TVMaze API. endpoint overrides the
// API base when non-empty, which the tests use.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     httpclient.Default(),
		cache:    map[string]string{},
	}
}

// Lookup returns a poster URL for title, or "" when no artwork could be
// found. Lookup never returns an error for a definitive miss; errors mean the
// query itself could not run and the miss is not cached.
//
// TVMaze indexes television only, so film titles are a definitive miss
// without a network round trip; only series and tv entries are queried.
func (c *Client) Lookup(ctx context.Context, title string, typ catalog.ContentType) (string, error) {
	if typ == catalog.TypeFilm {
		return "", nil
	}
	key := strings.ToLower(CleanTitle(title))
	if key == "" {
		return "", nil
	}

	c.mu.Lock()
	if img, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return img, nil
	}
	c.mu.Unlock()

	img, found, err := c.query(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		log.Printf("artwork: no match for %q", key)
	}

	c.mu.Lock()
	c.cache[key] = img
	c.mu.Unlock()
	return img, nil
}

func (c *Client) query(ctx context.Context, name string) (string, bool, error) {
	u := c.endpoint + "?q=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("artwork: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("artwork: query %q: %w", name, err)
	}
	defer resp.Body.Close()

	// TVMaze answers 404 for no match; that is a definitive, cacheable miss.
	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("artwork: query %q: unexpected status %d", name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false, fmt.Errorf("artwork: read response: %w", err)
	}
	var s show
	if err := json.Unmarshal(body, &s); err != nil {
		return "", false, fmt.Errorf("artwork: decode response: %w", err)
	}
	if s.Image == nil {
		return "", false, nil
	}
	if s.Image.Original != "" {
		return s.Image.Original, true, nil
	}
	return s.Image.Medium, true, nil
}
