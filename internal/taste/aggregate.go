package taste

import (
	"sort"
	"strings"
)

// maxTopGenres caps the genre frequency list in an aggregated profile.
const maxTopGenres = 20

// rankWeight converts a zero-based rank position into a contribution weight.
// Earlier positions weigh more; the floor keeps every listed artist visible.
func rankWeight(rank int) float64 {
	if rank < 0 {
		return 1
	}
	w := 100 - 2*float64(rank)
	if w < 1 {
		return 1
	}
	return w
}

// Aggregate folds ranked artist lists from any number of sources into one
// taste profile. The same artist (by normalized name) appearing in several
// sources accumulates weight from each, which is the signal that a
// cross-service favorite should outrank a single-service one-hit. Genres are
// unioned per artist; TopGenres is a frequency count across all contributing
// artists. Empty or absent sources are tolerated.
func Aggregate(sources []ServiceArtists) *UserMusicProfile {
	byName := make(map[string]*AggregatedArtist)
	var discovered []string // normalized names in first-seen order

	var connected []ServiceName
	seenService := make(map[ServiceName]bool)

	for _, src := range sources {
		if len(src.Artists) == 0 {
			continue
		}
		if !seenService[src.Service] {
			seenService[src.Service] = true
			connected = append(connected, src.Service)
		}

		weight := src.Weight
		if weight <= 0 {
			weight = 1
		}

		for _, ref := range src.Artists {
			key := Normalize(ref.Name)
			if key == "" {
				continue
			}

			contribution := weight * rankWeight(ref.Rank)
			if ref.Rank < 0 && ref.SourceScore > 0 {
				contribution = weight * ref.SourceScore
			}

			agg, ok := byName[key]
			if !ok {
				agg = &AggregatedArtist{
					NormalizedName: key,
					Name:           strings.TrimSpace(ref.Name),
				}
				byName[key] = agg
				discovered = append(discovered, key)
			}
			agg.Score += contribution
			agg.Genres = unionGenres(agg.Genres, ref.Genres)
			agg.Sources = appendService(agg.Sources, src.Service)
		}
	}

	profile := &UserMusicProfile{ConnectedServices: connected}

	// Build in discovery order, then a stable sort by score keeps ties in
	// first-discovered order.
	profile.TopArtists = make([]AggregatedArtist, 0, len(discovered))
	for _, key := range discovered {
		profile.TopArtists = append(profile.TopArtists, *byName[key])
	}
	sort.SliceStable(profile.TopArtists, func(i, j int) bool {
		return profile.TopArtists[i].Score > profile.TopArtists[j].Score
	})

	profile.TopGenres = topGenres(profile.TopArtists)

	return profile
}

// topGenres counts genre occurrences across all aggregated artists and
// returns them most-frequent first, capped at maxTopGenres. Ties keep
// first-seen order.
func topGenres(artists []AggregatedArtist) []string {
	counts := make(map[string]int)
	var order []string

	for _, a := range artists {
		for _, g := range a.Genres {
			key := strings.ToLower(strings.TrimSpace(g))
			if key == "" {
				continue
			}
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxTopGenres {
		order = order[:maxTopGenres]
	}
	return order
}

// unionGenres appends genres not already present, comparing case-insensitively.
func unionGenres(existing, incoming []string) []string {
	for _, g := range incoming {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		found := false
		for _, have := range existing {
			if strings.EqualFold(have, g) {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, g)
		}
	}
	return existing
}

// appendService appends a service if not already present.
func appendService(existing []ServiceName, s ServiceName) []ServiceName {
	for _, have := range existing {
		if have == s {
			return existing
		}
	}
	return append(existing, s)
}
