package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds catalog service settings, loaded from environment.
type Config struct {
	// Playlist source
	PlaylistURL     string // full M3U URL; takes precedence over provider creds
	ProviderBaseURL string // Xtream-style portal base, e.g. http://provider:8080
	ProviderUser    string
	ProviderPass    string

	// Paths
	StorePath   string // SQLite state database, e.g. ./state.db
	CatalogPath string // catalog JSON snapshot, e.g. ./catalog.json

	// HTTP API
	ListenAddr string // e.g. :8785

	// Retrieval
	LocalRelay         string  // same-origin relay endpoint tried before public relays
	PublicRelaysOff    bool    // disable the public CORS relay fallbacks
	FetchTimeout       time.Duration
	FetchRatePerSecond float64 // 0 = default limiter, negative = unlimited

	// Artwork fallback
	ArtworkEnabled  bool
	ArtworkEndpoint string // override for the TVMaze API base; "" = public API

	// RefreshInterval re-ingests the playlist periodically when > 0.
	RefreshInterval time.Duration
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load()
// to use a .env file.
func Load() *Config {
	c := &Config{
		PlaylistURL:        os.Getenv("IPTV_CATALOG_M3U_URL"),
		ProviderBaseURL:    os.Getenv("IPTV_CATALOG_PROVIDER_URL"),
		ProviderUser:       os.Getenv("IPTV_CATALOG_PROVIDER_USER"),
		ProviderPass:       os.Getenv("IPTV_CATALOG_PROVIDER_PASS"),
		StorePath:          getEnv("IPTV_CATALOG_STATE_DB", "./state.db"),
		CatalogPath:        getEnv("IPTV_CATALOG_SNAPSHOT", "./catalog.json"),
		ListenAddr:         getEnv("IPTV_CATALOG_LISTEN", ":8785"),
		LocalRelay:         os.Getenv("IPTV_CATALOG_LOCAL_RELAY"),
		PublicRelaysOff:    getEnvBool("IPTV_CATALOG_PUBLIC_RELAYS_OFF", false),
		FetchTimeout:       getEnvDuration("IPTV_CATALOG_FETCH_TIMEOUT", 45*time.Second),
		FetchRatePerSecond: getEnvFloat("IPTV_CATALOG_FETCH_RATE", 0),
		ArtworkEnabled:     getEnvBool("IPTV_CATALOG_ARTWORK", true),
		ArtworkEndpoint:    os.Getenv("IPTV_CATALOG_ARTWORK_ENDPOINT"),
		RefreshInterval:    getEnvDuration("IPTV_CATALOG_REFRESH_INTERVAL", 0),
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 45 * time.Second
	}
	return c
}

// M3UURLOrBuild returns PlaylistURL if set, otherwise builds an Xtream
// get.php URL from ProviderBaseURL + user + pass. Empty when neither is
// configured.
func (c *Config) M3UURLOrBuild() string {
	if c.PlaylistURL != "" {
		return c.PlaylistURL
	}
	if c.ProviderBaseURL == "" || c.ProviderUser == "" || c.ProviderPass == "" {
		return ""
	}
	base := strings.TrimSuffix(c.ProviderBaseURL, "/")
	return base + "/get.php?username=" + url.QueryEscape(c.ProviderUser) +
		"&password=" + url.QueryEscape(c.ProviderPass) + "&type=m3u_plus&output=ts"
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
