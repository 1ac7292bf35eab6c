// Package festival builds conflict-aware personal schedules from festival
// lineups and per-member taste matches.
package festival

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/areyoudear/stageside-sub001/internal/taste"
)

// ErrInvalidConfig signals a programmer-contract violation in the itinerary
// configuration.
var ErrInvalidConfig = errors.New("invalid itinerary configuration")

// minutesPerDay bounds rest-break validation.
const minutesPerDay = 24 * 60

// LineupArtist is one scheduled performance in a festival lineup as supplied
// by the upstream lineup provider. Day is an opaque grouping key (a date or a
// day label); times are 24-hour "HH:MM" strings. Times and stage are
// optional; artists without parseable times are excluded from scheduling but
// still count toward the full lineup.
type LineupArtist struct {
	Name      string   `json:"name"`
	Genres    []string `json:"genres,omitempty"`
	Day       string   `json:"day,omitempty"`
	Stage     string   `json:"stage,omitempty"`
	StartTime string   `json:"start_time,omitempty"`
	EndTime   string   `json:"end_time,omitempty"`
}

// Priority tiers a scheduled slot by how strongly the group matched the
// artist.
type Priority string

// Slot priorities.
const (
	PriorityMustSee     Priority = "must-see"
	PriorityRecommended Priority = "recommended"
	PriorityDiscovery   Priority = "discovery"
	PriorityFiller      Priority = "filler"
)

// ScheduleSlot binds one lineup artist into the generated itinerary.
// Alternates lists artists that were not selected because their set
// time-conflicts with this one.
type ScheduleSlot struct {
	Artist         LineupArtist `json:"artist"`
	Priority       Priority     `json:"priority"`
	Score          float64      `json:"score"`
	MatchedMembers []string     `json:"matched_members,omitempty"`
	Alternates     []string     `json:"alternates,omitempty"`
}

// ItineraryDay is an ordered (by start time) sequence of selected slots for
// one festival day.
type ItineraryDay struct {
	Day   string         `json:"day"`
	Slots []ScheduleSlot `json:"slots"`
}

// Conflict records two same-day artists on different stages whose time
// windows overlap. Conflicts are computed over the entire lineup, not just
// selected picks, so near-misses can be surfaced before a user commits.
type Conflict struct {
	Day            string `json:"day"`
	ArtistA        string `json:"artist_a"`
	ArtistB        string `json:"artist_b"`
	OverlapMinutes int    `json:"overlap_minutes"`
}

// GeneratedItinerary is the full output of the builder.
type GeneratedItinerary struct {
	Days []ItineraryDay `json:"days"`
	// Conflicts is the flat lineup-wide conflict list for display.
	Conflicts []Conflict `json:"conflicts,omitempty"`
	// Coverage is the fraction of must-see artists placed without conflict;
	// 1.0 when the lineup has no must-see artists.
	Coverage float64 `json:"coverage"`
	// LineupSize counts every lineup artist, including unscheduled ones
	// lacking times.
	LineupSize int `json:"lineup_size"`
	Scheduled  int `json:"scheduled"`
}

// MemberArtistMatches carries one group member's match results keyed by
// normalized lineup artist name. Results come from the taste scorer; the
// builder never recomputes match types.
type MemberArtistMatches struct {
	MemberID string
	Matches  map[string]taste.MatchResult
}

// TieBreakPolicy decides how candidates are ranked when member breadth and
// best single-member score disagree.
type TieBreakPolicy string

// Tie-break policies.
const (
	// TieBreakMemberCount ranks by number of matching members first.
	TieBreakMemberCount TieBreakPolicy = "member-count"
	// TieBreakBestScore ranks by highest single-member score first.
	TieBreakBestScore TieBreakPolicy = "best-score"
)

// Config bounds itinerary construction.
type Config struct {
	// MaxPerDay caps selected slots per day. Must be at least 1.
	MaxPerDay int `json:"max_per_day"`
	// RestBreakMinutes is the minimum gap required between consecutive
	// selected sets. Must be in [0, 24h).
	RestBreakMinutes int `json:"rest_break_minutes"`
	// TieBreak defaults to TieBreakMemberCount.
	TieBreak TieBreakPolicy `json:"tie_break,omitempty"`
}

// Validate rejects configurations that would produce nonsensical schedules.
func (c Config) Validate() error {
	if c.MaxPerDay < 1 {
		return fmt.Errorf("%w: max_per_day must be at least 1, got %d", ErrInvalidConfig, c.MaxPerDay)
	}
	if c.RestBreakMinutes < 0 {
		return fmt.Errorf("%w: rest_break_minutes must not be negative, got %d", ErrInvalidConfig, c.RestBreakMinutes)
	}
	if c.RestBreakMinutes >= minutesPerDay {
		return fmt.Errorf("%w: rest_break_minutes must be under a full day, got %d", ErrInvalidConfig, c.RestBreakMinutes)
	}
	switch c.TieBreak {
	case "", TieBreakMemberCount, TieBreakBestScore:
	default:
		return fmt.Errorf("%w: unknown tie_break policy %q", ErrInvalidConfig, c.TieBreak)
	}
	return nil
}

// parseClock converts an "HH:MM" 24-hour string to minutes since midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// timeWindow resolves an artist's set window in minutes since midnight.
// Sets that run past midnight get their end pushed into the next day.
func timeWindow(a LineupArtist) (start, end int, ok bool) {
	start, ok = parseClock(a.StartTime)
	if !ok {
		return 0, 0, false
	}
	end, ok = parseClock(a.EndTime)
	if !ok {
		return 0, 0, false
	}
	if end <= start {
		end += minutesPerDay
	}
	return start, end, true
}
