package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CheckSource fetches the playlist URL. Returns nil if OK, error with message if not.
func CheckSource(ctx context.Context, playlistURL string) error {
	if playlistURL == "" {
		return fmt.Errorf("no playlist URL configured")
	}
	// Some providers don't support HEAD; use GET and drain the body.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("source unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("source returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// CheckEndpoints hits the service's own API at baseURL and returns the first
// error or nil. Used by the check subcommand against a running instance.
func CheckEndpoints(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	for _, path := range []string{"/healthz", "/api/status", "/api/sections"} {
		url := baseURL + path
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
		}
	}
	return nil
}
