package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// SeriesInfo is the season/episode structure recovered from a display title.
type SeriesInfo struct {
	SeriesName    string
	SeasonNumber  int
	EpisodeNumber int
	EpisodeTitle  string // remainder after the marker; "" when absent
}

// seriesPatterns are tried in order against the full title; first match wins.
// Covered shapes, case-insensitive:
//
//	"Game of Thrones (2011) S01 E01"  (space between markers optional)
//	"Show Name S01E05 Pilot"
//	"Show Name - Season 1 Episode 5"
//	"Le Bureau - Saison 2 Épisode 3"
var seriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s*S(\d+)\s*E(\d+)\s*(.*)$`),
	regexp.MustCompile(`(?i)^(.+?)\s*-?\s*Season\s*(\d+)\s*Episode\s*(\d+)\s*(.*)$`),
	regexp.MustCompile(`(?i)^(.+?)\s*-?\s*Saison\s*(\d+)\s*[EÉ]pisode\s*(\d+)\s*(.*)$`),
}

// ParseSeriesInfo decomposes a title into (series name, season, episode,
// episode title). The second return is false when no pattern applies; the
// caller must then treat the item as not part of a series.
func ParseSeriesInfo(title string) (SeriesInfo, bool) {
	for _, re := range seriesPatterns {
		m := re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		season, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		episode, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		return SeriesInfo{
			SeriesName:    strings.TrimSpace(m[1]),
			SeasonNumber:  season,
			EpisodeNumber: episode,
			EpisodeTitle:  strings.TrimSpace(m[4]),
		}, true
	}
	return SeriesInfo{}, false
}
