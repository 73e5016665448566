// Package fetch retrieves playlist text across unreliable network paths.
//
// Providers commonly serve playlists over plain HTTP from hosts that reject
// datacenter traffic, so a direct GET is not enough: insecure targets are
// routed through an optional same-origin relay first, then a fixed list of
// public relay endpoints, stopping at the first candidate that returns usable
// text. Secure targets are fetched directly with no relay.
package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/nsoulassol86/iptv-catalog/internal/httpclient"
	"github.com/nsoulassol86/iptv-catalog/internal/metrics"
	"github.com/nsoulassol86/iptv-catalog/internal/safeurl"
)

// browserUA is sent on every candidate request. Several providers and all
// public relays reject the Go default agent outright.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const playlistHeaderToken = "#EXTM3U"

// maxBodySize caps how much relay output is buffered (64 MiB).
const maxBodySize = 64 << 20

// Relay is one public relay endpoint. Template must contain a single %s that
// receives the query-escaped target URL, per the relay's own convention.
type Relay struct {
	Name     string
	Template string
}

// DefaultRelays is the fixed, ordered public relay list used when
// Config.PublicRelays is nil.
var DefaultRelays = []Relay{
	{Name: "allorigins", Template: "https://api.allorigins.win/raw?url=%s"},
	{Name: "corsproxy", Template: "https://corsproxy.io/?%s"},
}

// Candidate is one retrieval path for a target URL.
type Candidate struct {
	Name string // "direct", "local-relay", "allorigins", "corsproxy"
	URL  string // the URL actually requested
}

// Attempt records one failed candidate for the ExhaustedError report.
type Attempt struct {
	Candidate string
	Err       error
}

// ExhaustedError is returned when every retrieval candidate failed or
// returned invalid content.
type ExhaustedError struct {
	URL       string
	Attempted []Attempt
}

func (e *ExhaustedError) Error() string {
	names := make([]string, len(e.Attempted))
	for i, a := range e.Attempted {
		names[i] = a.Candidate
	}
	return fmt.Sprintf("fetch: all %d candidates failed for %s (%s)", len(e.Attempted), e.URL, strings.Join(names, ", "))
}

// Config drives a Fetcher. Zero values are replaced with safe defaults by New.
type Config struct {
	// LocalRelay is a same-origin relay endpoint (e.g. a co-deployed
	// /api/proxy). When set, insecure targets try it before any public relay,
	// keeping the request out of third-party hands when possible.
	LocalRelay string

	// PublicRelays overrides DefaultRelays; nil means the default list and an
	// empty non-nil slice disables public relays entirely (the relay endpoint
	// itself uses that to avoid proxy loops).
	PublicRelays []Relay

	// ValidatePlaylist rejects candidate responses whose body does not start
	// with the #EXTM3U header token, so a relay serving an HTML error page
	// with status 200 is treated as a failed candidate.
	ValidatePlaylist bool

	// RatePerSecond throttles candidate requests; public relays rate-limit
	// aggressively. Default: 2/s, burst 4. Negative disables throttling.
	RatePerSecond float64

	// Client may be nil to use the shared default client.
	Client *http.Client

	// Metrics may be nil to disable instrumentation.
	Metrics *metrics.Metrics
}

// Fetcher retrieves raw text via an ordered candidate chain. Safe for
// concurrent use.
type Fetcher struct {
	cfg     Config
	limiter *rate.Limiter
}

// New returns a Fetcher for cfg.
func New(cfg Config) *Fetcher {
	if cfg.Client == nil {
		cfg.Client = httpclient.Default()
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond >= 0 {
		rps := cfg.RatePerSecond
		if rps == 0 {
			rps = 2
		}
		limiter = rate.NewLimiter(rate.Limit(rps), 4)
	}
	return &Fetcher{cfg: cfg, limiter: limiter}
}

// Candidates returns the ordered retrieval paths for target. Secure targets
// get a single direct candidate; insecure targets get the relay chain.
func (f *Fetcher) Candidates(target string) []Candidate {
	if safeurl.IsHTTPS(target) {
		return []Candidate{{Name: "direct", URL: target}}
	}
	var out []Candidate
	if f.cfg.LocalRelay != "" {
		out = append(out, Candidate{Name: "local-relay", URL: f.cfg.LocalRelay + "?url=" + url.QueryEscape(target)})
	}
	out = append(out, Candidate{Name: "direct", URL: target})
	relays := f.cfg.PublicRelays
	if relays == nil {
		relays = DefaultRelays
	}
	for _, r := range relays {
		out = append(out, Candidate{Name: r.Name, URL: fmt.Sprintf(r.Template, url.QueryEscape(target))})
	}
	return out
}

// Fetch retrieves target as text. Candidates are tried sequentially in fixed
// order, a single pass with no backoff; a non-2xx status, transport error, or
// invalid payload moves on to the next candidate. Returns *ExhaustedError
// after the last candidate fails.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, error) {
	if !safeurl.IsHTTPOrHTTPS(target) {
		return "", fmt.Errorf("fetch: unsupported URL %q", target)
	}

	candidates := f.Candidates(target)
	attempted := make([]Attempt, 0, len(candidates))

	for _, c := range candidates {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		if f.cfg.Metrics != nil {
			f.cfg.Metrics.FetchAttempts.WithLabelValues(c.Name).Inc()
		}

		body, err := f.tryCandidate(ctx, c)
		if err == nil {
			log.Printf("fetch: %s ok for %s (%d bytes)", c.Name, target, len(body))
			return body, nil
		}
		log.Printf("fetch: %s failed for %s: %v", c.Name, target, err)
		if f.cfg.Metrics != nil {
			f.cfg.Metrics.FetchFailures.WithLabelValues(c.Name).Inc()
		}
		attempted = append(attempted, Attempt{Candidate: c.Name, Err: err})

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	if f.cfg.Metrics != nil {
		f.cfg.Metrics.FetchExhausted.Inc()
	}
	return "", &ExhaustedError{URL: target, Attempted: attempted}
}

func (f *Fetcher) tryCandidate(ctx context.Context, c Candidate) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Setting Accept-Encoding explicitly disables the transport's transparent
	// gzip, so both encodings are decoded by hand below.
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.cfg.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	body := string(data)
	if f.cfg.ValidatePlaylist && !looksLikePlaylist(body) {
		return "", fmt.Errorf("payload does not start with %s", playlistHeaderToken)
	}
	return body, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// looksLikePlaylist reports whether body starts with the playlist header
// token, tolerating a UTF-8 BOM and leading whitespace.
func looksLikePlaylist(body string) bool {
	body = strings.TrimPrefix(body, "\uFEFF")
	return strings.HasPrefix(strings.TrimLeft(body, " \t\r\n"), playlistHeaderToken)
}
