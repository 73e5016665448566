package playlist

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const headerToken = "#EXTM3U"

// ErrMissingHeader is returned when the first non-blank line does not start
// with #EXTM3U. The playlist is considered malformed and nothing is salvaged.
var ErrMissingHeader = errors.New("playlist: invalid M3U: missing #EXTM3U header")

var (
	durationRe   = regexp.MustCompile(`^#EXTINF:(-?\d+)`)
	headerAttrRe = regexp.MustCompile(`([\w-]+)="([^"]*)"`)
	titleRe      = regexp.MustCompile(`,([^,]+)$`)

	// Recognized EXTINF attributes; keys matched case-insensitively.
	logoRe  = regexp.MustCompile(`(?i)tvg-logo="([^"]*)"`)
	nameRe  = regexp.MustCompile(`(?i)tvg-name="([^"]*)"`)
	idRe    = regexp.MustCompile(`(?i)tvg-id="([^"]*)"`)
	groupRe = regexp.MustCompile(`(?i)group-title="([^"]*)"`)
)

// Parse converts raw playlist text into an ordered Playlist. Entry order is
// source order; nothing is reordered or deduplicated here.
//
// An EXTINF directive is paired with the next non-comment line (the stream
// URL). A directive with no such line is silently dropped.
func Parse(text, sourceURL string) (*Playlist, error) {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 || !strings.HasPrefix(lines[0], headerToken) {
		return nil, ErrMissingHeader
	}

	p := &Playlist{
		Header:    parseHeader(lines[0]),
		ParsedAt:  time.Now(),
		SourceURL: sourceURL,
	}

	for i := 1; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "#EXTINF:") {
			continue
		}
		if i+1 >= len(lines) || strings.HasPrefix(lines[i+1], "#") {
			continue
		}
		p.Entries = append(p.Entries, parseExtinf(lines[i], lines[i+1]))
		i++
	}
	return p, nil
}

// parseHeader scans key="value" pairs from the #EXTM3U line. Order is not
// preserved; the last occurrence of a duplicate key wins.
func parseHeader(line string) map[string]string {
	header := make(map[string]string)
	for _, m := range headerAttrRe.FindAllStringSubmatch(line, -1) {
		header[m[1]] = m[2]
	}
	return header
}

func parseExtinf(extinf, urlLine string) Entry {
	duration := -1
	if m := durationRe.FindStringSubmatch(extinf); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			duration = n
		}
	}

	e := Entry{
		Extinf:          extinf,
		LogoURL:         attribute(logoRe, extinf),
		TVGName:         attribute(nameRe, extinf),
		TVGID:           attribute(idRe, extinf),
		GroupTitle:      attribute(groupRe, extinf),
		DurationSeconds: duration,
		StreamURL:       urlLine,
	}

	title := ""
	if m := titleRe.FindStringSubmatch(extinf); m != nil {
		title = strings.TrimSpace(m[1])
	}
	switch {
	case e.TVGName != "":
		e.Title = e.TVGName
	case title != "":
		e.Title = title
	default:
		e.Title = "Unknown"
	}
	return e
}

// attribute extracts an attr="value" match from an EXTINF line. The value is
// returned case-preserving; a missing attribute yields "".
func attribute(re *regexp.Regexp, line string) string {
	if m := re.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}
