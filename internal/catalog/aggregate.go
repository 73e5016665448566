package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nsoulassol86/iptv-catalog/internal/playlist"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// sectionLabels maps the fixed section order to display labels.
var sectionLabels = map[ContentType]string{
	TypeSeries: "Series",
	TypeFilm:   "Films",
	TypeTV:     "TV",
}

// sectionOrder is the fixed priority order sections are emitted in.
var sectionOrder = []ContentType{TypeSeries, TypeFilm, TypeTV}

// Slugify lowercases name, replaces every run of non-alphanumeric characters
// with a single hyphen, and strips leading/trailing hyphens. Distinct names
// that slugify identically collide and are grouped together; that is a known
// limitation, not deduplicated further.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = nonAlphaNum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ItemsFromEntries derives one MediaItem per playlist entry, order-preserving.
// IDs are "media-<index>" in ingestion order: unique within the snapshot but
// not stable across re-ingestion.
func ItemsFromEntries(entries []playlist.Entry) []MediaItem {
	items := make([]MediaItem, 0, len(entries))
	for i, e := range entries {
		item := MediaItem{
			ID:              "media-" + strconv.Itoa(i),
			Title:           e.Title,
			Thumbnail:       e.LogoURL,
			StreamURL:       e.StreamURL,
			Type:            Classify(e.GroupTitle),
			Category:        e.GroupTitle,
			DurationSeconds: e.DurationSeconds,
		}
		if item.Category == "" {
			item.Category = "Uncategorized"
		}
		if item.Type == TypeSeries {
			if info, ok := ParseSeriesInfo(e.Title); ok {
				item.SeriesName = info.SeriesName
				item.SeasonNumber = info.SeasonNumber
				item.EpisodeNumber = info.EpisodeNumber
				item.EpisodeTitle = info.EpisodeTitle
			}
		}
		items = append(items, item)
	}
	return items
}

// Aggregate builds a complete View from items. Deterministic given a fixed
// item order: repeated calls yield identical structures.
func Aggregate(items []MediaItem) View {
	return View{
		Items:    items,
		Sections: BuildSections(items),
		Series:   BuildSeriesIndex(items),
	}
}

// BuildSections groups items into sections (one per non-empty type, fixed
// order) and categories (first-seen label order). Series categories are
// reduced to one representative item per distinct series.
func BuildSections(items []MediaItem) []Section {
	var sections []Section
	for _, typ := range sectionOrder {
		var typed []MediaItem
		for _, it := range items {
			if it.Type == typ {
				typed = append(typed, it)
			}
		}
		if len(typed) == 0 {
			continue
		}

		var order []string
		byLabel := make(map[string][]MediaItem)
		for _, it := range typed {
			if _, seen := byLabel[it.Category]; !seen {
				order = append(order, it.Category)
			}
			byLabel[it.Category] = append(byLabel[it.Category], it)
		}

		categories := make([]Category, 0, len(order))
		for _, label := range order {
			catItems := byLabel[label]
			if typ == TypeSeries {
				catItems = dedupeSeries(catItems)
			}
			categories = append(categories, Category{
				ID:        Slugify(label),
				Name:      label,
				Type:      typ,
				Items:     catItems,
				ItemCount: len(catItems),
			})
		}

		sections = append(sections, Section{
			Type:       typ,
			Label:      sectionLabels[typ],
			Categories: categories,
		})
	}
	return sections
}

// dedupeSeries keeps one representative item per series, in first-seen order,
// with the item title replaced by the series name. Items whose title never
// matched a series pattern key on their own title.
func dedupeSeries(items []MediaItem) []MediaItem {
	var out []MediaItem
	seen := make(map[string]bool)
	for _, it := range items {
		key := it.SeriesName
		if key == "" {
			key = it.Title
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		rep := it
		rep.Title = key
		out = append(out, rep)
	}
	return out
}

// BuildSeriesIndex groups every item carrying a series name, whatever its
// category, into Series records keyed by name slug, then sorts each series'
// seasons and each season's episodes ascending by number.
//
// A missing season number defaults to 1; a missing episode number defaults to
// the season's current episode count + 1. Duplicate episode numbers within a
// season still append (first occurrence keeps its position after the sort).
func BuildSeriesIndex(items []MediaItem) []Series {
	var order []string
	byID := make(map[string]*Series)

	for _, it := range items {
		if it.SeriesName == "" {
			continue
		}
		id := Slugify(it.SeriesName)
		s, ok := byID[id]
		if !ok {
			s = &Series{
				ID:        id,
				Name:      it.SeriesName,
				Thumbnail: it.Thumbnail,
				Category:  it.Category,
			}
			byID[id] = s
			order = append(order, id)
		}

		seasonNum := it.SeasonNumber
		if seasonNum == 0 {
			seasonNum = 1
		}
		var season *Season
		for i := range s.Seasons {
			if s.Seasons[i].Number == seasonNum {
				season = &s.Seasons[i]
				break
			}
		}
		if season == nil {
			s.Seasons = append(s.Seasons, Season{Number: seasonNum})
			season = &s.Seasons[len(s.Seasons)-1]
		}

		epNum := it.EpisodeNumber
		if epNum == 0 {
			epNum = len(season.Episodes) + 1
		}
		epTitle := it.EpisodeTitle
		if epTitle == "" {
			epTitle = it.Title
		}
		season.Episodes = append(season.Episodes, Episode{
			Number:          epNum,
			Title:           epTitle,
			Thumbnail:       it.Thumbnail,
			StreamURL:       it.StreamURL,
			DurationSeconds: it.DurationSeconds,
		})
	}

	out := make([]Series, 0, len(order))
	for _, id := range order {
		s := byID[id]
		sort.SliceStable(s.Seasons, func(i, j int) bool { return s.Seasons[i].Number < s.Seasons[j].Number })
		for i := range s.Seasons {
			eps := s.Seasons[i].Episodes
			sort.SliceStable(eps, func(a, b int) bool { return eps[a].Number < eps[b].Number })
		}
		out = append(out, *s)
	}
	return out
}
