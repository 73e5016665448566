// Package safeurl validates user-supplied URLs before they reach the network
// layer.
package safeurl

import "net/url"

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF
// or local file access through the relay endpoint.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return s == "http" || s == "https"
}

// IsHTTPS returns true if u parses and uses the https scheme. Secure targets
// are fetched directly, with no relay in between.
func IsHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return parsed.Scheme == "https"
}
