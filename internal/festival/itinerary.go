package festival

import (
	"sort"

	"github.com/areyoudear/stageside-sub001/internal/taste"
)

// candidate is a lineup artist annotated with group match aggregates during
// itinerary construction.
type candidate struct {
	artist      LineupArtist
	start       int
	end         int
	schedulable bool
	priority    Priority
	bestScore   float64
	matched     []string
}

// BuildItinerary selects a conflict-aware, capacity-bounded schedule per
// festival day. Candidates are ranked by group match strength (per the
// configured tie-break policy) with start time as the stability key, then
// selected greedily: a candidate is dropped when the day is full or when its
// window comes within the rest break of an already selected set. Dropped
// artists that time-conflict with a selection are recorded as alternates on
// the winning slot rather than discarded silently.
//
// Artists without parseable times are excluded from scheduling but still
// counted in LineupSize. An empty lineup yields an empty itinerary, not an
// error; only an invalid Config is rejected.
func BuildItinerary(lineup []LineupArtist, memberMatches []MemberArtistMatches, cfg Config) (*GeneratedItinerary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	itinerary := &GeneratedItinerary{
		Conflicts:  DetectConflicts(lineup),
		LineupSize: len(lineup),
		Coverage:   1,
	}
	if len(lineup) == 0 {
		return itinerary, nil
	}

	byDay := make(map[string][]*candidate)
	var dayOrder []string
	var mustSeeTotal, mustSeePlaced int

	for _, artist := range lineup {
		c := newCandidate(artist, memberMatches)
		if c.priority == PriorityMustSee {
			mustSeeTotal++
		}
		if !c.schedulable {
			continue
		}
		if _, seen := byDay[artist.Day]; !seen {
			dayOrder = append(dayOrder, artist.Day)
		}
		byDay[artist.Day] = append(byDay[artist.Day], c)
	}
	sort.Strings(dayOrder)

	for _, day := range dayOrder {
		slots := scheduleDay(byDay[day], cfg)
		for _, slot := range slots {
			if slot.Priority == PriorityMustSee {
				mustSeePlaced++
			}
		}
		itinerary.Scheduled += len(slots)
		itinerary.Days = append(itinerary.Days, ItineraryDay{Day: day, Slots: slots})
	}

	if mustSeeTotal > 0 {
		itinerary.Coverage = float64(mustSeePlaced) / float64(mustSeeTotal)
	}

	return itinerary, nil
}

// newCandidate aggregates all member match results for one lineup artist.
// Priority reuses the taste scorer's match types: a direct-artist match for
// any member makes the set must-see; related or recent matches recommend it;
// a genre match for at least one member marks it discovery; anything else is
// filler.
func newCandidate(artist LineupArtist, memberMatches []MemberArtistMatches) *candidate {
	c := &candidate{artist: artist, priority: PriorityFiller}
	c.start, c.end, c.schedulable = timeWindow(artist)

	key := taste.Normalize(artist.Name)
	for _, member := range memberMatches {
		result, ok := member.Matches[key]
		if !ok || result.Score <= 0 {
			continue
		}
		c.matched = append(c.matched, member.MemberID)
		if result.Score > c.bestScore {
			c.bestScore = result.Score
		}
		if p := priorityForMatch(result.MatchType); priorityRank(p) > priorityRank(c.priority) {
			c.priority = p
		}
	}
	return c
}

// priorityForMatch maps a taste match type onto a slot priority tier.
func priorityForMatch(t taste.MatchType) Priority {
	switch t {
	case taste.MatchDirectArtist:
		return PriorityMustSee
	case taste.MatchRelatedArtist, taste.MatchRecentlyPlayed:
		return PriorityRecommended
	case taste.MatchGenre:
		return PriorityDiscovery
	default:
		return PriorityFiller
	}
}

// priorityRank orders priorities for comparison.
func priorityRank(p Priority) int {
	switch p {
	case PriorityMustSee:
		return 3
	case PriorityRecommended:
		return 2
	case PriorityDiscovery:
		return 1
	default:
		return 0
	}
}

// scheduleDay ranks one day's candidates and selects greedily under the
// capacity and rest-break constraints.
func scheduleDay(candidates []*candidate, cfg Config) []ScheduleSlot {
	ranked := make([]*candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if pa, pb := priorityRank(a.priority), priorityRank(b.priority); pa != pb {
			return pa > pb
		}
		first, second := len(a.matched) > len(b.matched), a.bestScore > b.bestScore
		firstEq, secondEq := len(a.matched) == len(b.matched), a.bestScore == b.bestScore
		if cfg.TieBreak == TieBreakBestScore {
			first, firstEq, second, secondEq = second, secondEq, first, firstEq
		}
		if !firstEq {
			return first
		}
		if !secondEq {
			return second
		}
		if a.start != b.start {
			return a.start < b.start
		}
		return a.artist.Name < b.artist.Name
	})

	var selected []*ScheduleSlot
	for _, c := range ranked {
		if len(selected) >= cfg.MaxPerDay {
			// Still record conflicts against winners so near-misses surface.
			if winner := conflictingSlot(selected, c, cfg.RestBreakMinutes); winner != nil {
				winner.Alternates = append(winner.Alternates, c.artist.Name)
			}
			continue
		}
		if winner := conflictingSlot(selected, c, cfg.RestBreakMinutes); winner != nil {
			winner.Alternates = append(winner.Alternates, c.artist.Name)
			continue
		}
		selected = append(selected, &ScheduleSlot{
			Artist:         c.artist,
			Priority:       c.priority,
			Score:          c.bestScore,
			MatchedMembers: c.matched,
		})
	}

	slots := make([]ScheduleSlot, len(selected))
	for i, s := range selected {
		slots[i] = *s
	}
	sort.SliceStable(slots, func(i, j int) bool {
		si, _, _ := timeWindow(slots[i].Artist)
		sj, _, _ := timeWindow(slots[j].Artist)
		return si < sj
	})
	return slots
}

// conflictingSlot returns the first selected slot whose window comes within
// rest minutes of the candidate's window, or nil when the candidate fits.
func conflictingSlot(selected []*ScheduleSlot, c *candidate, rest int) *ScheduleSlot {
	for _, s := range selected {
		start, end, ok := timeWindow(s.Artist)
		if !ok {
			continue
		}
		if c.start < end+rest && start < c.end+rest {
			return s
		}
	}
	return nil
}
