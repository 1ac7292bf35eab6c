package taste

import (
	"strings"
	"sync"
)

// MatchType is the coarse category explaining why a concert scored.
type MatchType string

// Match categories.
const (
	MatchDirectArtist   MatchType = "direct-artist"
	MatchRelatedArtist  MatchType = "related-artist"
	MatchRecentlyPlayed MatchType = "recently-played"
	MatchGenre          MatchType = "genre"
	MatchNone           MatchType = "none"
)

// Confidence is a coarse read of score magnitude.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidence thresholds, monotonic in score.
const (
	highConfidenceFloor   = 100
	mediumConfidenceFloor = 50
)

// fuzzyMinLength guards the substring artist tier against short names
// matching everything ("Sia" must not fuzzy-match every listing).
const fuzzyMinLength = 5

// affinityGenreCap bounds the affinity fallback walk over the profile's
// top genres.
const affinityGenreCap = 10

// MatchResult is the outcome of scoring one concert against one profile.
// Results are constructed fresh per evaluation and never mutated.
type MatchResult struct {
	Score      float64       `json:"score"`
	MatchType  MatchType     `json:"match_type"`
	Confidence Confidence    `json:"confidence"`
	Reasons    []string      `json:"reasons"`
	Signals    []MatchSignal `json:"signals,omitempty"`
}

// Scorer computes concert relevance for a single user profile. It is
// stateless apart from its injected weights and affinity table and is safe
// for concurrent use. The affinity table may be swapped at runtime via
// SetAffinity.
type Scorer struct {
	weights ScoringWeights

	mu       sync.RWMutex
	affinity AffinityTable
}

// NewScorer creates a scorer with the given weights and affinity table.
// A nil table disables the affinity fallback tier.
func NewScorer(weights ScoringWeights, affinity AffinityTable) *Scorer {
	return &Scorer{weights: weights, affinity: affinity}
}

// DefaultScorer returns a scorer with production weights and the built-in
// affinity table.
func DefaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), DefaultAffinityTable())
}

// SetAffinity replaces the affinity table. A nil table disables the
// affinity fallback tier. Safe to call while scoring is in progress.
func (s *Scorer) SetAffinity(table AffinityTable) {
	s.mu.Lock()
	s.affinity = table
	s.mu.Unlock()
}

// Score evaluates one concert's artists and genres against a profile.
// Tiers run in strict order: direct artist, fuzzy artist, recently played,
// direct genre (additive on top of any artist tier), and a genre-affinity
// fallback that fires only when nothing else produced a signal. Every result
// carries at least one reason; a listing is never silently reason-less.
// Empty inputs and nil profiles degrade to the genre and no-signal paths.
func (s *Scorer) Score(concertArtists, concertGenres []string, profile *UserMusicProfile) MatchResult {
	var (
		score   float64
		signals []MatchSignal
	)

	if profile == nil {
		profile = &UserMusicProfile{}
	}

	normalized := normalizeAll(concertArtists)

	// Tier 1: direct artist match. Only the single best match across all
	// headliners is credited; multiple matching headliners never double count.
	if sig, ok := s.bestDirectMatch(normalized, profile.TopArtists); ok {
		score += s.weights.DirectBase + s.weights.rankBonus(sig.RankIndex)
		signals = append(signals, sig)
	}

	// Tier 2: fuzzy substring match, only when no direct match exists.
	if len(signals) == 0 {
		if sig, ok := fuzzyMatch(normalized, concertArtists, profile.TopArtists); ok {
			score += s.weights.Fuzzy
			signals = append(signals, sig)
		}
	}

	// Tier 3: recently played, only when no artist tier fired.
	if score == 0 {
		if sig, ok := recentMatch(normalized, concertArtists, profile.RecentArtists); ok {
			score += s.weights.Recent
			signals = append(signals, sig)
		}
	}

	// Tier 4: direct genre overlap, always evaluated and cumulative across
	// all listed genres.
	if matched := genreOverlap(concertGenres, profile.TopGenres); len(matched) > 0 {
		score += s.weights.GenreBase + s.weights.GenreStep*float64(len(matched)-1)
		if len(matched) >= 2 {
			score += s.weights.Versatility
		}
		signals = append(signals, MatchSignal{Tier: TierGenre, Genres: matched})
	}

	// Tier 5: genre-affinity fallback, last resort only.
	if len(signals) == 0 {
		if sig, ok := s.affinityMatch(concertGenres, profile.TopGenres); ok {
			score += s.weights.Affinity
			signals = append(signals, sig)
		}
	}

	// Tier 6: no-signal guarantee.
	if len(signals) == 0 {
		signals = append(signals, MatchSignal{Tier: TierNone})
	}

	reasons := make([]string, 0, len(signals))
	for _, sig := range signals {
		reasons = append(reasons, sig.Reason())
	}

	return MatchResult{
		Score:      score,
		MatchType:  signals[0].MatchType(),
		Confidence: confidenceFor(score),
		Reasons:    reasons,
		Signals:    signals,
	}
}

// bestDirectMatch finds the profile artist with the lowest rank index whose
// normalized name equals any concert artist's normalized name.
func (s *Scorer) bestDirectMatch(normalizedConcert []string, topArtists []AggregatedArtist) (MatchSignal, bool) {
	best := -1
	var bestArtist string
	for rankIndex, artist := range topArtists {
		if best >= 0 && rankIndex >= best {
			break
		}
		for _, name := range normalizedConcert {
			if name != "" && name == artist.NormalizedName {
				best = rankIndex
				bestArtist = artist.Name
				break
			}
		}
	}
	if best < 0 {
		return MatchSignal{}, false
	}
	return MatchSignal{Tier: TierDirectArtist, Artist: bestArtist, RankIndex: best}, true
}

// fuzzyMatch finds the first substring containment between a concert artist
// and a profile artist where the contained name is long enough to be
// meaningful.
func fuzzyMatch(normalizedConcert, concertArtists []string, topArtists []AggregatedArtist) (MatchSignal, bool) {
	for i, name := range normalizedConcert {
		if name == "" {
			continue
		}
		for _, artist := range topArtists {
			if containsEither(name, artist.NormalizedName) {
				return MatchSignal{Tier: TierFuzzyArtist, Artist: displayName(concertArtists, i)}, true
			}
		}
	}
	return MatchSignal{}, false
}

// recentMatch tests normalized equality against the recent-listens list.
func recentMatch(normalizedConcert, concertArtists, recent []string) (MatchSignal, bool) {
	for _, r := range recent {
		rn := Normalize(r)
		if rn == "" {
			continue
		}
		for i, name := range normalizedConcert {
			if name == rn {
				return MatchSignal{Tier: TierRecent, Artist: displayName(concertArtists, i)}, true
			}
		}
	}
	return MatchSignal{}, false
}

// genreOverlap returns the concert genres that match any profile top genre by
// case-insensitive substring containment in either direction.
func genreOverlap(concertGenres, topGenres []string) []string {
	var matched []string
	for _, cg := range concertGenres {
		lower := strings.ToLower(strings.TrimSpace(cg))
		if lower == "" {
			continue
		}
		for _, tg := range topGenres {
			userGenre := strings.ToLower(tg)
			if strings.Contains(lower, userGenre) || strings.Contains(userGenre, lower) {
				matched = append(matched, strings.TrimSpace(cg))
				break
			}
		}
	}
	return matched
}

// affinityMatch walks the profile's top genres (capped) through the adjacency
// table looking for a concert genre adjacent to something the user likes.
func (s *Scorer) affinityMatch(concertGenres, topGenres []string) (MatchSignal, bool) {
	s.mu.RLock()
	affinity := s.affinity
	s.mu.RUnlock()
	if affinity == nil {
		return MatchSignal{}, false
	}
	limit := len(topGenres)
	if limit > affinityGenreCap {
		limit = affinityGenreCap
	}
	for _, tg := range topGenres[:limit] {
		for _, adjacent := range affinity.Related(tg) {
			for _, cg := range concertGenres {
				lower := strings.ToLower(strings.TrimSpace(cg))
				if lower == "" {
					continue
				}
				if strings.Contains(lower, adjacent) || strings.Contains(adjacent, lower) {
					return MatchSignal{Tier: TierAffinity, Genres: []string{tg}}, true
				}
			}
		}
	}
	return MatchSignal{}, false
}

// confidenceFor maps a score to a confidence band.
func confidenceFor(score float64) Confidence {
	switch {
	case score >= highConfidenceFloor:
		return ConfidenceHigh
	case score >= mediumConfidenceFloor:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// containsEither reports substring containment in either direction, requiring
// the contained string to be at least fuzzyMinLength characters.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		// Equal strings are a direct match's business, not fuzzy's; but a
		// profile list that never produced a direct hit (e.g. recent-only
		// callers) still counts equality as containment.
		return len(a) >= fuzzyMinLength
	}
	if len(b) >= fuzzyMinLength && strings.Contains(a, b) {
		return true
	}
	if len(a) >= fuzzyMinLength && strings.Contains(b, a) {
		return true
	}
	return false
}

// normalizeAll normalizes a slice of names, preserving positions.
func normalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Normalize(n)
	}
	return out
}

// displayName returns the original concert artist string for position i,
// trimmed, falling back to the empty string.
func displayName(concertArtists []string, i int) string {
	if i < 0 || i >= len(concertArtists) {
		return ""
	}
	return strings.TrimSpace(concertArtists[i])
}
