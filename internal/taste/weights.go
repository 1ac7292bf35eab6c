package taste

// ScoringWeights is the tunable point scheme for the match scorer. All tiers
// read their point values from here so alternate weightings can be tested
// without code changes.
type ScoringWeights struct {
	// DirectBase is awarded for a direct artist match before the rank bonus.
	DirectBase float64 `json:"direct_base" yaml:"direct_base"`
	// RankBonusMax is the bonus for a rank-0 artist; it shrinks by
	// RankBonusStep per rank position and floors at zero.
	RankBonusMax  float64 `json:"rank_bonus_max" yaml:"rank_bonus_max"`
	RankBonusStep float64 `json:"rank_bonus_step" yaml:"rank_bonus_step"`
	// Fuzzy is awarded for a substring artist match when no direct match exists.
	Fuzzy float64 `json:"fuzzy" yaml:"fuzzy"`
	// Recent is awarded for a recently-played match when no artist tier fired.
	Recent float64 `json:"recent" yaml:"recent"`
	// GenreBase is the first genre-tier contribution; each additional direct
	// genre match adds GenreStep.
	GenreBase float64 `json:"genre_base" yaml:"genre_base"`
	GenreStep float64 `json:"genre_step" yaml:"genre_step"`
	// Versatility is a flat bonus when two or more genres match directly.
	Versatility float64 `json:"versatility" yaml:"versatility"`
	// Affinity is awarded when only the genre-adjacency fallback fires.
	Affinity float64 `json:"affinity" yaml:"affinity"`
}

// DefaultWeights returns the production point scheme.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		DirectBase:    100,
		RankBonusMax:  50,
		RankBonusStep: 2,
		Fuzzy:         80,
		Recent:        70,
		GenreBase:     20,
		GenreStep:     10,
		Versatility:   5,
		Affinity:      15,
	}
}

// rankBonus computes the rank-scaled portion of a direct match for a
// zero-based rank index.
func (w ScoringWeights) rankBonus(rankIndex int) float64 {
	bonus := w.RankBonusMax - w.RankBonusStep*float64(rankIndex)
	if bonus < 0 {
		return 0
	}
	return bonus
}
