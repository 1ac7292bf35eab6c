package taste

import "sort"

// GroupMatchType classifies how widely a concert matched across a group.
type GroupMatchType string

// Group match classifications. A concert matching no members is excluded
// from group results entirely rather than reported with a none type.
const (
	GroupUniversal GroupMatchType = "universal"
	GroupMajority  GroupMatchType = "majority"
	GroupSome      GroupMatchType = "some"
)

// tierRank orders group match types for result sorting.
func (t GroupMatchType) tierRank() int {
	switch t {
	case GroupUniversal:
		return 3
	case GroupMajority:
		return 2
	case GroupSome:
		return 1
	default:
		return 0
	}
}

// MemberProfile pairs a group member's ID with their taste profile.
type MemberProfile struct {
	MemberID string
	Profile  *UserMusicProfile
}

// MemberMatch is one member's individual match result within a group
// evaluation.
type MemberMatch struct {
	MemberID string      `json:"member_id"`
	Result   MatchResult `json:"result"`
}

// GroupMatchResult is the consensus outcome for one concert across a group.
type GroupMatchResult struct {
	Score          float64        `json:"score"`
	MatchType      GroupMatchType `json:"match_type"`
	MatchedMembers []string       `json:"matched_members"`
	MemberMatches  []MemberMatch  `json:"member_matches,omitempty"`
}

// groupBreadthBonus rewards each additional matched member beyond the first,
// so a concert three people like beats a concert one person loves slightly
// more.
const groupBreadthBonus = 20

// ScoreForGroup runs the single-user scorer independently per member and
// classifies the consensus. A member counts as matched when their individual
// score exceeds floor; the floor is member-count-independent and defaults to
// zero. Returns ok=false when no member matched, in which case the concert
// must not surface in group results.
//
// The group score is the mean of matched members' scores plus a breadth
// bonus, rewarding both depth and breadth.
func (s *Scorer) ScoreForGroup(concertArtists, concertGenres []string, members []MemberProfile, floor float64) (GroupMatchResult, bool) {
	if len(members) == 0 {
		return GroupMatchResult{}, false
	}

	var (
		matched []string
		sum     float64
		results = make([]MemberMatch, 0, len(members))
	)

	for _, m := range members {
		r := s.Score(concertArtists, concertGenres, m.Profile)
		results = append(results, MemberMatch{MemberID: m.MemberID, Result: r})
		if r.Score > floor {
			matched = append(matched, m.MemberID)
			sum += r.Score
		}
	}

	if len(matched) == 0 {
		return GroupMatchResult{}, false
	}

	matchType := GroupSome
	switch {
	case len(matched) == len(members):
		matchType = GroupUniversal
	case len(matched)*2 > len(members):
		matchType = GroupMajority
	}

	score := sum/float64(len(matched)) + groupBreadthBonus*float64(len(matched)-1)

	return GroupMatchResult{
		Score:          score,
		MatchType:      matchType,
		MatchedMembers: matched,
		MemberMatches:  results,
	}, true
}

// GroupConcertResult pairs a concert identifier with its group consensus
// result, for sorted result lists.
type GroupConcertResult struct {
	ConcertID string           `json:"concert_id"`
	Result    GroupMatchResult `json:"result"`
}

// SortGroupResults orders group results by match-type tier first (universal
// over majority over some) and score second. The double-key ordering is a
// contract: a universal match with a modest score always outranks a
// high-scoring partial match.
func SortGroupResults(results []GroupConcertResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ti, tj := results[i].Result.MatchType.tierRank(), results[j].Result.MatchType.tierRank()
		if ti != tj {
			return ti > tj
		}
		return results[i].Result.Score > results[j].Result.Score
	})
}
