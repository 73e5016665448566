// Command iptv-catalog: ingest an M3U playlist into a browsable media
// catalog, or serve it over HTTP.
//
//	run    One-run: ingest playlist, then serve the API. For systemd. Zero interaction after .env.
//	index  Fetch M3U, classify and aggregate, save catalog JSON
//	serve  Serve the API from a saved catalog (ingest on demand via POST /api/load)
//	check  Probe the playlist source, or a running instance with -base-url
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nsoulassol86/iptv-catalog/internal/api"
	"github.com/nsoulassol86/iptv-catalog/internal/artwork"
	"github.com/nsoulassol86/iptv-catalog/internal/config"
	"github.com/nsoulassol86/iptv-catalog/internal/health"
	"github.com/nsoulassol86/iptv-catalog/internal/httpclient"
	"github.com/nsoulassol86/iptv-catalog/internal/ingest"
	"github.com/nsoulassol86/iptv-catalog/internal/metrics"
	"github.com/nsoulassol86/iptv-catalog/internal/playlist/fetch"
	"github.com/nsoulassol86/iptv-catalog/internal/store"
)

// newFetcher builds the playlist fetcher from config: local relay first for
// insecure targets, then direct, then the public CORS relays unless disabled.
func newFetcher(cfg *config.Config, m *metrics.Metrics) *fetch.Fetcher {
	fc := fetch.Config{
		LocalRelay:       cfg.LocalRelay,
		ValidatePlaylist: true,
		RatePerSecond:    cfg.FetchRatePerSecond,
		Client:           httpclient.WithTimeout(cfg.FetchTimeout),
		Metrics:          m,
	}
	if cfg.PublicRelaysOff {
		fc.PublicRelays = []fetch.Relay{}
	}
	return fetch.New(fc)
}

// ingestOnce runs a single load and persists the catalog snapshot on success.
func ingestOnce(ctx context.Context, o *ingest.Orchestrator, url, snapshotPath string) error {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if err := o.Load(loadCtx, url); err != nil {
		return err
	}
	if snapshotPath != "" {
		if err := o.Catalog().Save(snapshotPath); err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
	}
	return nil
}

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[iptv-catalog] ")

	indexCmd := flag.NewFlagSet("index", flag.ExitOnError)
	indexM3U := indexCmd.String("m3u", "", "M3U URL (default: IPTV_CATALOG_M3U_URL or provider creds)")
	indexSnapshot := indexCmd.String("catalog", "", "Catalog JSON path (default: IPTV_CATALOG_SNAPSHOT)")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default: IPTV_CATALOG_LISTEN)")
	serveSnapshot := serveCmd.String("catalog", "", "Catalog JSON path (default: IPTV_CATALOG_SNAPSHOT)")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runM3U := runCmd.String("m3u", "", "M3U URL (default: IPTV_CATALOG_M3U_URL, provider creds, or last saved URL)")
	runAddr := runCmd.String("addr", "", "Listen address (default: IPTV_CATALOG_LISTEN)")
	runSnapshot := runCmd.String("catalog", "", "Catalog JSON path (default: IPTV_CATALOG_SNAPSHOT)")
	runRefresh := runCmd.Duration("refresh", 0, "Re-ingest interval (e.g. 6h). 0 = IPTV_CATALOG_REFRESH_INTERVAL or startup only")
	runSkipIndex := runCmd.Bool("skip-index", false, "Skip ingest at startup (serve the saved catalog)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkM3U := checkCmd.String("m3u", "", "Playlist URL to probe (default: configured URL)")
	checkBaseURL := checkCmd.String("base-url", "", "Probe a running instance at this base URL instead of the source")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <run|index|serve|check> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  run    One-run: ingest playlist, serve API (for systemd)\n")
		fmt.Fprintf(os.Stderr, "  index  Fetch M3U, save catalog JSON\n")
		fmt.Fprintf(os.Stderr, "  serve  Serve API from saved catalog\n")
		fmt.Fprintf(os.Stderr, "  check  Probe the playlist source or a running instance\n")
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "index":
		_ = indexCmd.Parse(os.Args[2:])
		path := *indexSnapshot
		if path == "" {
			path = cfg.CatalogPath
		}
		url := *indexM3U
		if url == "" {
			url = cfg.M3UURLOrBuild()
		}
		if url == "" {
			log.Print("No playlist URL. Pass -m3u or set IPTV_CATALOG_M3U_URL in .env")
			os.Exit(1)
		}
		o := ingest.New(ingest.Config{Fetcher: newFetcher(cfg, nil)})
		if err := ingestOnce(context.Background(), o, url, path); err != nil {
			log.Printf("Index failed: %v", err)
			os.Exit(1)
		}
		view := o.Catalog().Snapshot()
		log.Printf("Saved catalog to %s: %d items, %d sections, %d series",
			path, len(view.Items), len(view.Sections), len(view.Series))

	case "serve", "run":
		isRun := os.Args[1] == "run"
		var addr, snapshot, m3u string
		var refresh time.Duration
		skipIndex := !isRun
		if isRun {
			_ = runCmd.Parse(os.Args[2:])
			addr, snapshot, m3u = *runAddr, *runSnapshot, *runM3U
			refresh = *runRefresh
			skipIndex = *runSkipIndex
		} else {
			_ = serveCmd.Parse(os.Args[2:])
			addr, snapshot = *serveAddr, *serveSnapshot
		}
		if addr == "" {
			addr = cfg.ListenAddr
		}
		if snapshot == "" {
			snapshot = cfg.CatalogPath
		}
		if refresh == 0 {
			refresh = cfg.RefreshInterval
		}

		st, err := store.Open(cfg.StorePath)
		if err != nil {
			log.Printf("Open state store %s: %v", cfg.StorePath, err)
			os.Exit(1)
		}
		defer st.Close()

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		o := ingest.New(ingest.Config{Fetcher: newFetcher(cfg, m), Store: st, Metrics: m})

		if err := o.Catalog().Load(snapshot); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Load catalog %s: %v; starting empty", snapshot, err)
			}
		} else {
			view := o.Catalog().Snapshot()
			log.Printf("Loaded catalog from %s: %d items, %d series", snapshot, len(view.Items), len(view.Series))
		}

		if m3u == "" {
			m3u = cfg.M3UURLOrBuild()
		}
		if m3u == "" {
			m3u = o.Restore()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !skipIndex && m3u != "" {
			log.Printf("Ingesting %s ...", m3u)
			if err := ingestOnce(ctx, o, m3u, snapshot); err != nil {
				log.Printf("Startup ingest failed: %v (serving saved catalog)", err)
			}
		}

		// Background re-ingest on ticker and SIGHUP. Snapshot only written
		// after a successful load, so a failing source never clobbers it.
		if m3u != "" {
			sigHUP := make(chan os.Signal, 1)
			signal.Notify(sigHUP, syscall.SIGHUP)
			defer signal.Stop(sigHUP)

			var tickerC <-chan time.Time
			if refresh > 0 {
				ticker := time.NewTicker(refresh)
				defer ticker.Stop()
				tickerC = ticker.C
			}

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-tickerC:
						log.Print("Re-ingesting playlist (scheduled) ...")
					case <-sigHUP:
						log.Print("SIGHUP received, re-ingesting playlist")
					}
					url := o.Restore()
					if url == "" {
						url = m3u
					}
					if err := ingestOnce(ctx, o, url, snapshot); err != nil {
						log.Printf("Scheduled ingest failed: %v", err)
					}
				}
			}()
		}

		var art *artwork.Client
		if cfg.ArtworkEnabled {
			art = artwork.New(cfg.ArtworkEndpoint)
		}
		relay := fetch.New(fetch.Config{
			PublicRelays:  []fetch.Relay{},
			RatePerSecond: cfg.FetchRatePerSecond,
			Client:        httpclient.WithTimeout(cfg.FetchTimeout),
		})
		srv := api.New(api.Config{
			Orchestrator: o,
			Artwork:      art,
			Store:        st,
			Registry:     reg,
			Relay:        relay,
		})

		httpSrv := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
		log.Printf("Listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Serve failed: %v", err)
			os.Exit(1)
		}

	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if *checkBaseURL != "" {
			if err := health.CheckEndpoints(ctx, *checkBaseURL); err != nil {
				log.Printf("Instance check failed: %v", err)
				os.Exit(1)
			}
			log.Print("Instance OK")
			return
		}
		url := *checkM3U
		if url == "" {
			url = cfg.M3UURLOrBuild()
		}
		if err := health.CheckSource(ctx, url); err != nil {
			log.Printf("Source check failed: %v", err)
			os.Exit(1)
		}
		log.Print("Source OK")

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
