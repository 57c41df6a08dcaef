package domain

import "sort"

// Game is a catalog record for a single stream. CacheTime is the unix
// second it was fetched from the provider; VideoLink is the provider's
// encoded (not yet decoded) link.
type Game struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Poster    string `json:"poster"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	CacheTime int64  `json:"cache_time"`
	VideoLink string `json:"video_link"`
	Category  string `json:"category"`
}

// GameCategory groups games under a provider category name.
type GameCategory struct {
	Category string `json:"category"`
	Games    []Game `json:"games"`
}

// GroupByCategory buckets games by category, categories sorted by name and
// games kept in input order within each bucket.
func GroupByCategory(games []Game) []GameCategory {
	buckets := make(map[string][]Game)
	for _, g := range games {
		buckets[g.Category] = append(buckets[g.Category], g)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]GameCategory, 0, len(names))
	for _, name := range names {
		out = append(out, GameCategory{Category: name, Games: buckets[name]})
	}
	return out
}
