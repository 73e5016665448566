package catalog

import (
	"regexp"
	"strings"
)

// Classification is intentionally heuristic: provider group titles carry no
// schema, so typing relies on ordered keyword rules over the label alone.

var seriesTokens = []string{"series", "série", "tv show"}

var filmTokens = []string{"film", "movie", "vod"}

// frMarker matches the whole-word regional/language marker used by French
// providers to tag VOD groups ("ACTION FR", "NOUVEAUTES FR 2025").
var frMarker = regexp.MustCompile(`(?i)\bfr\b`)

// liveTokens suppresses the regional-marker rule: a group title carrying any
// of these is a live channel lineup, not a film shelf, even when it also
// carries the marker ("RMC SPORT FR").
var liveTokens = []string{
	"tv",
	"channel",
	"live",
	"chaine",
	"chaîne",
	"direct",
	"24/7",
	"news",
	"sport",
	"ligue",
	"football",
	"box office",
	"netflix",
	"amazon",
	"prime",
	"disney",
	"canal",
	"ocs",
	"bein",
	"rmc",
	"eurosport",
	"paramount",
	"apple",
}

// Classify maps a free-text category label to a ContentType. Total and pure:
// every input, including the empty string, yields one of the three types.
// Rules are evaluated in order; the first match wins.
func Classify(groupTitle string) ContentType {
	group := strings.ToLower(groupTitle)

	if containsAnyToken(group, seriesTokens) {
		return TypeSeries
	}
	if containsAnyToken(group, filmTokens) {
		return TypeFilm
	}
	// Regional-marker fallback: "ACTION FR" style VOD shelves. Must lose to
	// the live-channel token set or channel packs like "RMC SPORT FR" would
	// land in films.
	if frMarker.MatchString(group) && !isLiveChannelLabel(group) {
		return TypeFilm
	}
	return TypeTV
}

func isLiveChannelLabel(group string) bool {
	return containsAnyToken(group, liveTokens)
}

func containsAnyToken(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
