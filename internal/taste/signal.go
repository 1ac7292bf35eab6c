package taste

import (
	"fmt"
	"strings"
)

// SignalTier identifies which scoring tier produced a match signal.
type SignalTier string

// Scoring tiers, in evaluation order.
const (
	TierDirectArtist SignalTier = "direct-artist"
	TierFuzzyArtist  SignalTier = "fuzzy-artist"
	TierRecent       SignalTier = "recently-played"
	TierGenre        SignalTier = "genre"
	TierAffinity     SignalTier = "genre-affinity"
	TierNone         SignalTier = "none"
)

// MatchSignal is the structured outcome of one scoring tier, kept separate
// from presentation so the scorer's output is testable independent of
// copywriting.
type MatchSignal struct {
	Tier SignalTier `json:"tier"`
	// Artist is the display name of the matched artist, for artist tiers.
	Artist string `json:"artist,omitempty"`
	// RankIndex is the matched artist's zero-based rank in the profile;
	// only meaningful for TierDirectArtist.
	RankIndex int `json:"rank_index,omitempty"`
	// Genres holds the matched genre names for genre and affinity tiers.
	Genres []string `json:"genres,omitempty"`
}

// Reason renders a signal as a human-readable justification string.
func (s MatchSignal) Reason() string {
	switch s.Tier {
	case TierDirectArtist:
		switch {
		case s.RankIndex < 3:
			return fmt.Sprintf("%s is one of your top 3 artists", s.Artist)
		case s.RankIndex < 10:
			return fmt.Sprintf("%s is in your top 10 artists", s.Artist)
		case s.RankIndex < 25:
			return fmt.Sprintf("%s is in your top 25 artists", s.Artist)
		default:
			return fmt.Sprintf("%s is in your library", s.Artist)
		}
	case TierFuzzyArtist:
		return fmt.Sprintf("%s looks like an artist in your library", s.Artist)
	case TierRecent:
		return fmt.Sprintf("you recently listened to %s", s.Artist)
	case TierGenre:
		if len(s.Genres) > 1 {
			return fmt.Sprintf("spans genres you listen to: %s", strings.Join(s.Genres, ", "))
		}
		return fmt.Sprintf("matches your taste for %s", strings.Join(s.Genres, ", "))
	case TierAffinity:
		return fmt.Sprintf("you might enjoy this if you like %s", strings.Join(s.Genres, ", "))
	default:
		return "discover something new near you"
	}
}

// MatchType converts a tier into the coarse match category reported to
// callers. The fuzzy tier surfaces as a related-artist match; the affinity
// fallback surfaces as a genre match.
func (s MatchSignal) MatchType() MatchType {
	switch s.Tier {
	case TierDirectArtist:
		return MatchDirectArtist
	case TierFuzzyArtist:
		return MatchRelatedArtist
	case TierRecent:
		return MatchRecentlyPlayed
	case TierGenre, TierAffinity:
		return MatchGenre
	default:
		return MatchNone
	}
}
