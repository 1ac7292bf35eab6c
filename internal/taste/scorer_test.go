package taste

import (
	"strings"
	"testing"
)

// profileWithArtists builds a profile whose top artists are the given names
// in rank order.
func profileWithArtists(names ...string) *UserMusicProfile {
	p := &UserMusicProfile{}
	for _, n := range names {
		p.TopArtists = append(p.TopArtists, AggregatedArtist{
			NormalizedName: Normalize(n),
			Name:           n,
		})
	}
	return p
}

func TestScoreTopRankedDirectMatch(t *testing.T) {
	profile := profileWithArtists("Tame Impala", "Khruangbin")
	profile.TopGenres = []string{"psych rock"}

	result := DefaultScorer().Score([]string{"Tame Impala"}, []string{"Psych Rock", "Indie"}, profile)

	if result.Score < 150 {
		t.Errorf("Score = %v, want >= 150 (direct base + rank bonus + genre tier)", result.Score)
	}
	if result.MatchType != MatchDirectArtist {
		t.Errorf("MatchType = %q, want %q", result.MatchType, MatchDirectArtist)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %q, want %q", result.Confidence, ConfidenceHigh)
	}
	foundTop := false
	for _, r := range result.Reasons {
		if strings.Contains(r, "Tame Impala") && strings.Contains(r, "top 3") {
			foundTop = true
		}
	}
	if !foundTop {
		t.Errorf("Reasons = %v, want a top-3 mention of Tame Impala", result.Reasons)
	}
}

func TestScoreCasePunctuationInvariance(t *testing.T) {
	result := DefaultScorer().Score([]string{"Beyoncé"}, nil, profileWithArtists("beyonce"))
	if result.MatchType != MatchDirectArtist {
		t.Errorf("MatchType = %q, want %q", result.MatchType, MatchDirectArtist)
	}
}

func TestScorePrimaryMatchExclusivity(t *testing.T) {
	// Two of three headliners are top-ranked; only the single best match may
	// be credited.
	profile := profileWithArtists("Big Thief", "Wilco")
	result := DefaultScorer().Score([]string{"Big Thief", "Wilco", "Nobody"}, nil, profile)

	want := 100.0 + 50.0 // rank 0
	if result.Score != want {
		t.Errorf("Score = %v, want %v (single best match only)", result.Score, want)
	}
	direct := 0
	for _, sig := range result.Signals {
		if sig.Tier == TierDirectArtist {
			direct++
		}
	}
	if direct != 1 {
		t.Errorf("direct signals = %d, want exactly 1", direct)
	}
}

func TestScoreMonotonicRankBonus(t *testing.T) {
	scorer := DefaultScorer()
	low := scorer.Score([]string{"Target"}, nil,
		profileWithArtists("A", "Target", "C"))
	high := scorer.Score([]string{"Target"}, nil,
		profileWithArtists("Target", "B", "C"))

	if high.Score < low.Score {
		t.Errorf("rank 0 score %v < rank 1 score %v; rank bonus must be monotonic", high.Score, low.Score)
	}
	if high.Score != 150 {
		t.Errorf("rank 0 score = %v, want 150", high.Score)
	}
	if low.Score != 148 {
		t.Errorf("rank 1 score = %v, want 148", low.Score)
	}
}

func TestScoreRankBonusFloorsAtZero(t *testing.T) {
	names := make([]string, 30)
	for i := range names {
		names[i] = "artist" + string(rune('a'+i))
	}
	names[29] = "Deep Cut"
	result := DefaultScorer().Score([]string{"Deep Cut"}, nil, profileWithArtists(names...))
	if result.Score != 100 {
		t.Errorf("Score = %v, want 100 (rank bonus floored at zero past rank 25)", result.Score)
	}
}

func TestScoreFuzzyMatch(t *testing.T) {
	result := DefaultScorer().Score([]string{"Khruangbin & Friends"}, nil, profileWithArtists("Khruangbin"))
	if result.MatchType != MatchRelatedArtist {
		t.Errorf("MatchType = %q, want %q", result.MatchType, MatchRelatedArtist)
	}
	if result.Score != 80 {
		t.Errorf("Score = %v, want 80", result.Score)
	}
}

func TestScoreFuzzyShortSubstringGuard(t *testing.T) {
	// "Sia" is contained in "Siamese Dream" but is too short to count.
	result := DefaultScorer().Score([]string{"Siamese Dream"}, nil, profileWithArtists("Sia"))
	if result.MatchType != MatchNone {
		t.Errorf("MatchType = %q, want %q (short substrings must not fuzzy-match)", result.MatchType, MatchNone)
	}
	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
}

func TestScoreRecentlyPlayed(t *testing.T) {
	profile := &UserMusicProfile{RecentArtists: []string{"Fontaines D.C."}}
	result := DefaultScorer().Score([]string{"Fontaines D.C."}, nil, profile)
	if result.MatchType != MatchRecentlyPlayed {
		t.Errorf("MatchType = %q, want %q", result.MatchType, MatchRecentlyPlayed)
	}
	if result.Score != 70 {
		t.Errorf("Score = %v, want 70", result.Score)
	}
}

func TestScoreGenreCumulative(t *testing.T) {
	profile := &UserMusicProfile{TopGenres: []string{"indie", "folk"}}
	result := DefaultScorer().Score(nil, []string{"Indie Rock", "Folk", "Jazz"}, profile)

	// Two direct genre matches: 20 + 10 + 5 versatility.
	if result.Score != 35 {
		t.Errorf("Score = %v, want 35", result.Score)
	}
	if result.MatchType != MatchGenre {
		t.Errorf("MatchType = %q, want %q", result.MatchType, MatchGenre)
	}
}

func TestScoreGenreAdditiveOnTopOfArtistTier(t *testing.T) {
	profile := profileWithArtists("Tame Impala")
	profile.TopGenres = []string{"rock"}
	result := DefaultScorer().Score([]string{"Tame Impala"}, []string{"Rock"}, profile)

	if result.Score != 170 {
		t.Errorf("Score = %v, want 170 (150 direct + 20 genre)", result.Score)
	}
	if result.MatchType != MatchDirectArtist {
		t.Errorf("MatchType = %q, want %q (primary reason stays direct)", result.MatchType, MatchDirectArtist)
	}
	if len(result.Reasons) != 2 {
		t.Errorf("Reasons = %v, want direct and genre reasons", result.Reasons)
	}
}

func TestScoreAffinityFallback(t *testing.T) {
	profile := &UserMusicProfile{TopGenres: []string{"rock"}}
	result := DefaultScorer().Score([]string{"Unknown Act"}, []string{"Indie"}, profile)

	if result.Score != 15 {
		t.Errorf("Score = %v, want 15", result.Score)
	}
	if result.MatchType != MatchGenre {
		t.Errorf("MatchType = %q, want %q", result.MatchType, MatchGenre)
	}
	if len(result.Signals) != 1 || result.Signals[0].Tier != TierAffinity {
		t.Errorf("Signals = %v, want a single affinity signal", result.Signals)
	}
}

func TestScoreAffinityNeverFiresAfterDirectGenre(t *testing.T) {
	profile := &UserMusicProfile{TopGenres: []string{"rock"}}
	// "rock" matches directly; the adjacency walk must stay silent even
	// though "indie" is adjacent to rock.
	result := DefaultScorer().Score(nil, []string{"Rock", "Indie"}, profile)

	for _, sig := range result.Signals {
		if sig.Tier == TierAffinity {
			t.Errorf("affinity signal produced despite direct genre match: %v", result.Signals)
		}
	}
}

func TestScoreInjectedAffinityTable(t *testing.T) {
	table := AffinityTable{"zydeco": {"cajun"}}
	scorer := NewScorer(DefaultWeights(), table)
	profile := &UserMusicProfile{TopGenres: []string{"zydeco"}}

	result := scorer.Score(nil, []string{"Cajun"}, profile)
	if result.Score != 15 {
		t.Errorf("Score = %v, want 15 from substitute table", result.Score)
	}
}

func TestScoreNoSignalGuarantee(t *testing.T) {
	tests := []struct {
		name    string
		artists []string
		genres  []string
		profile *UserMusicProfile
	}{
		{"empty everything", nil, nil, &UserMusicProfile{}},
		{"nil profile", []string{"Someone"}, []string{"Jazz"}, nil},
		{"empty profile with genres", nil, []string{"Jazz"}, &UserMusicProfile{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DefaultScorer().Score(tt.artists, tt.genres, tt.profile)
			if len(result.Reasons) < 1 {
				t.Error("no reasons produced; every result must carry at least one")
			}
			if result.Score != 0 {
				t.Errorf("Score = %v, want 0", result.Score)
			}
			if result.MatchType != MatchNone {
				t.Errorf("MatchType = %q, want %q", result.MatchType, MatchNone)
			}
			if len(result.Reasons) != 1 {
				t.Errorf("Reasons = %v, want exactly one fallback reason", result.Reasons)
			}
		})
	}
}

func TestSetAffinitySwapsTable(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), nil)
	profile := &UserMusicProfile{TopGenres: []string{"zydeco"}}

	result := scorer.Score([]string{"Unknown Act"}, []string{"cajun"}, profile)
	if result.MatchType != MatchNone {
		t.Fatalf("MatchType = %q, want none before the table is set", result.MatchType)
	}

	scorer.SetAffinity(AffinityTable{"zydeco": {"cajun"}})
	result = scorer.Score([]string{"Unknown Act"}, []string{"cajun"}, profile)
	if result.MatchType != MatchGenre {
		t.Errorf("MatchType = %q, want genre via the swapped table", result.MatchType)
	}
	if result.Score != DefaultWeights().Affinity {
		t.Errorf("Score = %v, want the affinity weight", result.Score)
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	tests := []struct {
		score float64
		want  Confidence
	}{
		{0, ConfidenceLow},
		{49, ConfidenceLow},
		{50, ConfidenceMedium},
		{99, ConfidenceMedium},
		{100, ConfidenceHigh},
		{250, ConfidenceHigh},
	}
	for _, tt := range tests {
		if got := confidenceFor(tt.score); got != tt.want {
			t.Errorf("confidenceFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
