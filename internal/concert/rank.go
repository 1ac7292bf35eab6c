package concert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/areyoudear/stageside-sub001/internal/event"
	"github.com/areyoudear/stageside-sub001/internal/festival"
	"github.com/areyoudear/stageside-sub001/internal/profile"
	"github.com/areyoudear/stageside-sub001/internal/roster"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

// RankedListing pairs a listing with one user's match result.
type RankedListing struct {
	Listing Listing           `json:"listing"`
	Result  taste.MatchResult `json:"result"`
}

// GroupRankedListing pairs a listing with a group's match result.
type GroupRankedListing struct {
	Listing Listing                `json:"listing"`
	Result  taste.GroupMatchResult `json:"result"`
}

// Ranker scores listings against taste profiles.
type Ranker struct {
	scorer   *taste.Scorer
	profiles *profile.Service
	groups   *roster.Service
	bus      *event.Bus
	logger   *slog.Logger
}

// NewRanker creates a ranker.
func NewRanker(scorer *taste.Scorer, profiles *profile.Service, groups *roster.Service, bus *event.Bus, logger *slog.Logger) *Ranker {
	return &Ranker{
		scorer:   scorer,
		profiles: profiles,
		groups:   groups,
		bus:      bus,
		logger:   logger.With(slog.String("component", "ranker")),
	}
}

// RankForUser scores every listing against the user's profile and returns
// them best first. Ties keep the incoming (soonest-first) order.
func (r *Ranker) RankForUser(ctx context.Context, userID string, listings []Listing) ([]RankedListing, error) {
	prof, err := r.profiles.CachedOrBuild(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	ranked := make([]RankedListing, 0, len(listings))
	for _, l := range listings {
		result := r.scorer.Score(l.Artists, l.Genres, prof)
		ranked = append(ranked, RankedListing{Listing: l, Result: result})

		if r.bus != nil && result.Confidence == taste.ConfidenceHigh {
			r.bus.Publish(event.Event{
				Type: event.ConcertMatched,
				Data: map[string]any{
					"user_id":    userID,
					"listing_id": l.ID,
					"score":      result.Score,
				},
			})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.Score > ranked[j].Result.Score
	})
	return ranked, nil
}

// RankForGroup scores every listing against all member profiles. Listings no
// member matches are excluded. Results sort by consensus tier, then score.
func (r *Ranker) RankForGroup(ctx context.Context, groupID string, listings []Listing, floor float64) ([]GroupRankedListing, error) {
	members, err := r.memberProfiles(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var ranked []GroupRankedListing
	results := make([]taste.GroupConcertResult, 0, len(listings))
	byConcert := make(map[string]Listing, len(listings))
	for _, l := range listings {
		result, ok := r.scorer.ScoreForGroup(l.Artists, l.Genres, members, floor)
		if !ok {
			continue
		}
		results = append(results, taste.GroupConcertResult{ConcertID: l.ID, Result: result})
		byConcert[l.ID] = l
	}

	taste.SortGroupResults(results)
	for _, res := range results {
		ranked = append(ranked, GroupRankedListing{
			Listing: byConcert[res.ConcertID],
			Result:  res.Result,
		})
	}

	if r.bus != nil && len(ranked) > 0 {
		r.bus.Publish(event.Event{
			Type: event.GroupScored,
			Data: map[string]any{
				"group_id": groupID,
				"matches":  len(ranked),
			},
		})
	}
	return ranked, nil
}

// LineupMatches scores a festival lineup for every group member, producing
// the per-member match tables the itinerary builder consumes.
func (r *Ranker) LineupMatches(ctx context.Context, groupID string, lineup []festival.LineupArtist) ([]festival.MemberArtistMatches, error) {
	members, err := r.memberProfiles(ctx, groupID)
	if err != nil {
		return nil, err
	}

	matches := make([]festival.MemberArtistMatches, 0, len(members))
	for _, member := range members {
		table := make(map[string]taste.MatchResult, len(lineup))
		for _, artist := range lineup {
			result := r.scorer.Score([]string{artist.Name}, artist.Genres, member.Profile)
			if result.Score <= 0 {
				continue
			}
			table[taste.Normalize(artist.Name)] = result
		}
		matches = append(matches, festival.MemberArtistMatches{
			MemberID: member.MemberID,
			Matches:  table,
		})
	}
	return matches, nil
}

// memberProfiles loads a taste profile for every group member. A member
// whose profile cannot be built contributes an empty profile instead of
// failing the whole group.
func (r *Ranker) memberProfiles(ctx context.Context, groupID string) ([]taste.MemberProfile, error) {
	members, err := r.groups.Members(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}

	profiles := make([]taste.MemberProfile, 0, len(members))
	for _, m := range members {
		prof, err := r.profiles.CachedOrBuild(ctx, m.UserID)
		if err != nil {
			r.logger.Warn("building member profile failed",
				slog.String("user_id", m.UserID), slog.Any("error", err))
			prof = &taste.UserMusicProfile{}
		}
		profiles = append(profiles, taste.MemberProfile{MemberID: m.UserID, Profile: prof})
	}
	return profiles, nil
}
