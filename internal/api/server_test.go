package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nsoulassol86/iptv-catalog/internal/artwork"
	"github.com/nsoulassol86/iptv-catalog/internal/catalog"
	"github.com/nsoulassol86/iptv-catalog/internal/ingest"
	"github.com/nsoulassol86/iptv-catalog/internal/playlist/fetch"
	"github.com/nsoulassol86/iptv-catalog/internal/store"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-name="RMC SPORT FR" group-title="SPORT FR",RMC SPORT FR
http://host/live/1.ts
#EXTINF:-1 group-title="SERIES VF",Dark S01 E01
http://host/series/1.mp4
#EXTINF:-1 group-title="FILM VF",Inception
http://host/movie/1.mp4
`

type stubFetcher struct{ text string }

func (f stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.text, nil
}

func newTestServer(t *testing.T) (*Server, *ingest.Orchestrator) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	o := ingest.New(ingest.Config{Fetcher: stubFetcher{text: samplePlaylist}, Store: st})
	if err := o.Load(context.Background(), "http://host/list.m3u"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := New(Config{
		Orchestrator: o,
		Store:        st,
		Registry:     prometheus.NewRegistry(),
	})
	return s, o
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_statusAndHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz = %d", rec.Code)
	}

	rec = get(t, s, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/status = %d", rec.Code)
	}
	var st ingest.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.State != ingest.StateReady {
		t.Fatalf("status state = %v, want ready", st.State)
	}
}

func TestServer_sections(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/sections")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/sections = %d", rec.Code)
	}
	var sections []catalog.Section
	if err := json.Unmarshal(rec.Body.Bytes(), &sections); err != nil {
		t.Fatalf("decode sections: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(sections))
	}
	if sections[0].Type != catalog.TypeSeries {
		t.Fatalf("first section = %q, want series", sections[0].Type)
	}
}

func TestServer_itemLookup(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/items/media-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/items/media-1 = %d", rec.Code)
	}
	var item catalog.MediaItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item.ID != "media-1" {
		t.Fatalf("item.ID = %q", item.ID)
	}

	if rec := get(t, s, "/api/items/media-999"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown item = %d, want 404", rec.Code)
	}
}

func TestServer_playAndLastPlayed(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := get(t, s, "/api/last-played"); rec.Code != http.StatusNotFound {
		t.Fatalf("last-played before play = %d, want 404", rec.Code)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/items/media-2/play", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("play = %d", rec.Code)
	}

	rec = get(t, s, "/api/last-played")
	if rec.Code != http.StatusOK {
		t.Fatalf("last-played = %d", rec.Code)
	}
	var item catalog.MediaItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode last-played: %v", err)
	}
	if item.ID != "media-2" {
		t.Fatalf("last-played id = %q, want media-2", item.ID)
	}
}

func TestServer_loadEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"url":"http://host/other.m3u"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/load", body)
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("load = %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/load", strings.NewReader(`{"url":"file:///etc/passwd"}`))
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("load file:// = %d, want 400", rec.Code)
	}
}

func TestServer_seriesEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/series")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/series = %d", rec.Code)
	}
	var series []catalog.Series
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(series) != 1 || series[0].Name != "Dark" {
		t.Fatalf("series = %+v, want one entry named Dark", series)
	}

	rec = get(t, s, "/api/series/"+series[0].ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/series/{id} = %d", rec.Code)
	}
	if rec := get(t, s, "/api/series/nope"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown series = %d, want 404", rec.Code)
	}
}

func TestServer_proxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello relay"))
	}))
	defer upstream.Close()

	s, _ := newTestServer(t)
	s.cfg.Relay = fetch.New(fetch.Config{
		PublicRelays:  []fetch.Relay{},
		RatePerSecond: -1,
	})
	s.router = s.routes()

	rec := get(t, s, "/api/proxy?url="+upstream.URL)
	if rec.Code != http.StatusOK {
		t.Fatalf("proxy = %d: %s", rec.Code, rec.Body)
	}
	if rec.Body.String() != "hello relay" {
		t.Fatalf("proxy body = %q", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("proxy missing CORS header")
	}

	if rec := get(t, s, "/api/proxy?url=file:///etc/passwd"); rec.Code != http.StatusBadRequest {
		t.Fatalf("proxy file:// = %d, want 400", rec.Code)
	}
	if rec := get(t, s, "/api/proxy"); rec.Code != http.StatusBadRequest {
		t.Fatalf("proxy without url = %d, want 400", rec.Code)
	}
}

func TestServer_artworkTypeGate(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"name":"Dark","image":{"original":"http://img/dark-o.jpg"}}`))
	}))
	defer upstream.Close()

	s, _ := newTestServer(t)
	s.cfg.Artwork = artwork.New(upstream.URL)
	s.router = s.routes()

	rec := get(t, s, "/api/artwork?title=Inception&type=film")
	if rec.Code != http.StatusOK {
		t.Fatalf("artwork film = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode artwork: %v", err)
	}
	if resp["image"] != "" {
		t.Fatalf("film artwork = %q, want empty", resp["image"])
	}
	if calls != 0 {
		t.Fatalf("upstream called %d times for a film, want 0", calls)
	}

	rec = get(t, s, "/api/artwork?title=Dark&type=series")
	if rec.Code != http.StatusOK {
		t.Fatalf("artwork series = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode artwork: %v", err)
	}
	if resp["image"] != "http://img/dark-o.jpg" || calls != 1 {
		t.Fatalf("series artwork = %q after %d upstream calls", resp["image"], calls)
	}
}

func TestServer_proxyDisabled(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := get(t, s, "/api/proxy?url=http://host/x"); rec.Code != http.StatusNotFound {
		t.Fatalf("proxy without relay = %d, want 404", rec.Code)
	}
}
