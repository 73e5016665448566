// Package ingest coordinates fetch, parse, classification, and aggregation
// into a single load operation and owns the resulting catalog state.
package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/nsoulassol86/iptv-catalog/internal/catalog"
	"github.com/nsoulassol86/iptv-catalog/internal/metrics"
	"github.com/nsoulassol86/iptv-catalog/internal/playlist"
	"github.com/nsoulassol86/iptv-catalog/internal/playlist/fetch"
	"github.com/nsoulassol86/iptv-catalog/internal/store"
)

// State is the orchestrator lifecycle: idle → loading → {ready, failed}.
// A single tagged state, not independent boolean flags, so readers can never
// observe a torn loading/error combination.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrSuperseded is returned by Load when a newer Load was issued while this
// one was in flight; the completed result was discarded.
var ErrSuperseded = errors.New("ingest: load superseded by a newer request")

// TextFetcher retrieves raw playlist text. Satisfied by *fetch.Fetcher.
type TextFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Status is a snapshot of the orchestrator's externally visible state.
type Status struct {
	State      State     `json:"state"`
	URL        string    `json:"url,omitempty"`
	Error      string    `json:"error,omitempty"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
}

// Config wires an Orchestrator. Fetcher is required; Store and Metrics may be
// nil.
type Config struct {
	Fetcher TextFetcher
	Store   *store.Store
	Metrics *metrics.Metrics
}

// Orchestrator owns the catalog cell and the load lifecycle. Concurrent Load
// calls are allowed: each one bumps a generation counter and only the result
// whose generation is still current is applied, so a slow stale response can
// never overwrite a newer catalog regardless of network arrival order.
type Orchestrator struct {
	cfg     Config
	catalog *catalog.Catalog

	mu        sync.Mutex
	gen       uint64
	state     State
	url       string
	errMsg    string
	loadedAt  time.Time
	observers []func(Status)
}

// New returns an idle orchestrator. The catalog starts empty; call Restore to
// recover the last playlist URL from the store.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg, catalog: catalog.New()}
}

// Catalog returns the orchestrator-owned catalog cell. Readers see either the
// prior complete view or the next complete view, never a partial one.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	return o.catalog
}

// Status returns the current lifecycle snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

func (o *Orchestrator) statusLocked() Status {
	return Status{
		State:      o.state,
		URL:        o.url,
		Error:      o.errMsg,
		Generation: o.gen,
		LoadedAt:   o.loadedAt,
	}
}

// Subscribe registers fn to be called after every state transition. Callbacks
// run synchronously on the transitioning goroutine; keep them short.
func (o *Orchestrator) Subscribe(fn func(Status)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Restore returns the last playlist URL saved in the store, or "" when none
// exists. It does not trigger a load.
func (o *Orchestrator) Restore() string {
	if o.cfg.Store == nil {
		return ""
	}
	return o.cfg.Store.PlaylistURL()
}

// RecordPlayed persists itemID as the last played item. Returns the item so
// callers get the opaque stream URL in the same call.
func (o *Orchestrator) RecordPlayed(itemID string) (catalog.MediaItem, bool) {
	item, ok := o.catalog.ItemByID(itemID)
	if !ok {
		return catalog.MediaItem{}, false
	}
	if o.cfg.Store != nil {
		if err := o.cfg.Store.SaveLastPlayed(itemID); err != nil {
			log.Printf("ingest: could not persist last played: %v", err)
		}
	}
	return item, true
}

// Load fetches, parses, and aggregates url into a new catalog view, then
// swaps it in atomically. On failure the previous catalog, if any, is left
// untouched and only the error slot changes. Returns ErrSuperseded when a
// newer Load was issued before this one completed.
func (o *Orchestrator) Load(ctx context.Context, url string) error {
	gen := o.begin(url)
	start := time.Now()

	text, err := o.cfg.Fetcher.Fetch(ctx, url)
	if err != nil {
		return o.fail(gen, err)
	}

	pl, err := playlist.Parse(text, url)
	if err != nil {
		return o.fail(gen, err)
	}

	// Pure transformations: classification and series extraction happen
	// inside ItemsFromEntries; the whole view is built off to the side.
	view := catalog.Aggregate(catalog.ItemsFromEntries(pl.Entries))

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		o.dropStale(gen, url)
		return ErrSuperseded
	}
	o.catalog.Replace(view)
	o.state = StateReady
	o.errMsg = ""
	o.loadedAt = time.Now()
	status := o.statusLocked()
	obs := append([]func(Status){}, o.observers...)
	o.mu.Unlock()

	if m := o.cfg.Metrics; m != nil {
		m.IngestRuns.WithLabelValues("ready").Inc()
		m.IngestDuration.Observe(time.Since(start).Seconds())
		m.CatalogItems.Set(float64(len(view.Items)))
		m.CatalogSeries.Set(float64(len(view.Series)))
	}
	log.Printf("ingest: loaded %s: %d entries, %d sections, %d series in %s",
		url, len(view.Items), len(view.Sections), len(view.Series), time.Since(start).Round(time.Millisecond))

	notify(obs, status)
	return nil
}

// begin bumps the generation, moves to loading, and persists the URL.
func (o *Orchestrator) begin(url string) uint64 {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.state = StateLoading
	o.url = url
	o.errMsg = ""
	status := o.statusLocked()
	obs := append([]func(Status){}, o.observers...)
	o.mu.Unlock()

	if o.cfg.Store != nil {
		if err := o.cfg.Store.SavePlaylistURL(url); err != nil {
			log.Printf("ingest: could not persist playlist URL: %v", err)
		}
	}
	notify(obs, status)
	return gen
}

func (o *Orchestrator) fail(gen uint64, cause error) error {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		o.dropStale(gen, o.url)
		return ErrSuperseded
	}
	o.state = StateFailed
	o.errMsg = userMessage(cause)
	status := o.statusLocked()
	obs := append([]func(Status){}, o.observers...)
	o.mu.Unlock()

	if m := o.cfg.Metrics; m != nil {
		m.IngestRuns.WithLabelValues("failed").Inc()
	}
	log.Printf("ingest: load failed: %v", cause)
	notify(obs, status)
	return cause
}

func (o *Orchestrator) dropStale(gen uint64, url string) {
	log.Printf("ingest: dropping stale result for %s (generation %d superseded)", url, gen)
	if m := o.cfg.Metrics; m != nil {
		m.IngestRuns.WithLabelValues("superseded").Inc()
	}
}

func notify(observers []func(Status), status Status) {
	for _, fn := range observers {
		fn(status)
	}
}

// userMessage maps an ingestion error to the single user-facing message kept
// in the error slot. Retrieval exhaustion gets a generic retryable message;
// malformed playlists surface verbatim.
func userMessage(err error) string {
	var exhausted *fetch.ExhaustedError
	if errors.As(err, &exhausted) {
		return "could not load playlist"
	}
	return err.Error()
}
