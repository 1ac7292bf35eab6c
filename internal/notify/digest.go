package notify

import (
	"time"

	"github.com/areyoudear/stageside-sub001/internal/concert"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

// Digest summarizes a user's best upcoming concert matches.
type Digest struct {
	UserID      string       `json:"user_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Items       []DigestItem `json:"items"`
}

// DigestItem is one recommended concert in a digest.
type DigestItem struct {
	Title     string    `json:"title"`
	Venue     string    `json:"venue,omitempty"`
	City      string    `json:"city,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	URL       string    `json:"url,omitempty"`
	Score     float64   `json:"score"`
	MatchType string    `json:"match_type"`
	Reasons   []string  `json:"reasons,omitempty"`
}

// ComposeDigest builds a digest from ranked listings, keeping matches at or
// above the score floor. Unmatched listings never appear.
func ComposeDigest(userID string, ranked []concert.RankedListing, minScore float64) *Digest {
	digest := &Digest{
		UserID:      userID,
		GeneratedAt: time.Now().UTC(),
	}
	for _, r := range ranked {
		if r.Result.MatchType == taste.MatchNone || r.Result.Score < minScore {
			continue
		}
		digest.Items = append(digest.Items, DigestItem{
			Title:     r.Listing.Title,
			Venue:     r.Listing.Venue,
			City:      r.Listing.City,
			StartsAt:  r.Listing.StartsAt,
			URL:       r.Listing.URL,
			Score:     r.Result.Score,
			MatchType: string(r.Result.MatchType),
			Reasons:   r.Result.Reasons,
		})
	}
	return digest
}
