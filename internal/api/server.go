// Package api exposes the catalog over HTTP: browse endpoints, ingestion
// control, the playback bookmark, and the same-origin relay used as the first
// retrieval candidate for insecure playlist URLs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nsoulassol86/iptv-catalog/internal/artwork"
	"github.com/nsoulassol86/iptv-catalog/internal/catalog"
	"github.com/nsoulassol86/iptv-catalog/internal/ingest"
	"github.com/nsoulassol86/iptv-catalog/internal/playlist/fetch"
	"github.com/nsoulassol86/iptv-catalog/internal/safeurl"
	"github.com/nsoulassol86/iptv-catalog/internal/store"
)

// Config wires a Server. Orchestrator is required; the rest may be nil and
// the corresponding endpoints degrade (404 or 503).
type Config struct {
	Orchestrator *ingest.Orchestrator
	Artwork      *artwork.Client
	Store        *store.Store
	Registry     *prometheus.Registry

	// Relay serves GET /api/proxy. It should be a direct-only fetcher with
	// payload validation off so arbitrary text resources pass through.
	Relay *fetch.Fetcher
}

type Server struct {
	cfg    Config
	router *mux.Router
}

func New(cfg Config) *Server {
	s := &Server{cfg: cfg}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	if s.cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/load", s.handleLoad).Methods(http.MethodPost)
	api.HandleFunc("/sections", s.handleSections).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", s.handleItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/last-played", s.handleLastPlayed).Methods(http.MethodGet)
	api.HandleFunc("/series", s.handleSeriesList).Methods(http.MethodGet)
	api.HandleFunc("/series/{id}", s.handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/artwork", s.handleArtwork).Methods(http.MethodGet)
	api.HandleFunc("/proxy", s.handleProxy).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Orchestrator.Status())
}

// handleLoad starts an ingestion for the URL in the JSON body {"url": ...}.
// The load runs synchronously; a superseded result is reported as 409.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"url\": \"...\"}")
		return
	}
	if !safeurl.IsHTTPOrHTTPS(body.URL) {
		writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	err := s.cfg.Orchestrator.Load(r.Context(), body.URL)
	switch {
	case errors.Is(err, ingest.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer load")
	case err != nil:
		writeJSON(w, http.StatusBadGateway, s.cfg.Orchestrator.Status())
	default:
		writeJSON(w, http.StatusOK, s.cfg.Orchestrator.Status())
	}
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	view := s.cfg.Orchestrator.Catalog().Snapshot()
	writeJSON(w, http.StatusOK, view.Sections)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item, ok := s.cfg.Orchestrator.Catalog().ItemByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown item "+id)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	item, ok := s.cfg.Orchestrator.RecordPlayed(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown item "+id)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleLastPlayed(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "no persistent store configured")
		return
	}
	id := s.cfg.Store.LastPlayed()
	if id == "" {
		writeError(w, http.StatusNotFound, "nothing played yet")
		return
	}
	item, ok := s.cfg.Orchestrator.Catalog().ItemByID(id)
	if !ok {
		// The bookmark outlived the catalog entry; report the id anyway.
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleSeriesList(w http.ResponseWriter, r *http.Request) {
	view := s.cfg.Orchestrator.Catalog().Snapshot()
	writeJSON(w, http.StatusOK, view.Series)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	series, ok := s.cfg.Orchestrator.Catalog().SeriesByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown series "+id)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleArtwork(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Artwork == nil {
		writeError(w, http.StatusNotFound, "artwork lookup disabled")
		return
	}
	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "missing title parameter")
		return
	}
	typ := catalog.ContentType(r.URL.Query().Get("type"))
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	img, err := s.cfg.Artwork.Lookup(ctx, title, typ)
	if err != nil {
		writeError(w, http.StatusBadGateway, "artwork lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title, "image": img})
}

// handleProxy relays GET /api/proxy?url=... so browser clients can reach
// plain-http playlists from a secure page. Only http/https targets are
// allowed and the response is returned as text with permissive CORS.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Relay == nil {
		writeError(w, http.StatusNotFound, "relay disabled")
		return
	}
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	if !safeurl.IsHTTPOrHTTPS(target) {
		writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	body, err := s.cfg.Relay.Fetch(r.Context(), target)
	if err != nil {
		log.Printf("api: proxy %s: %v", target, err)
		writeError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("api: proxy write: %v", err)
	}
}
