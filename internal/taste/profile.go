package taste

// ServiceName identifies a streaming service or other artist-list origin.
type ServiceName string

// Known artist-list origins.
const (
	ServiceSpotify ServiceName = "spotify"
	ServiceLastFM  ServiceName = "lastfm"
	ServiceDeezer  ServiceName = "deezer"
	ServiceManual  ServiceName = "manual"
	ServiceRelated ServiceName = "related"
)

// ArtistRef is one ranked artist as reported by a single source. Rank is the
// zero-based position within that source's list; sources that report an
// unranked set use Rank < 0 and may supply a SourceScore (provider
// popularity) instead.
type ArtistRef struct {
	Name        string   `json:"name"`
	Genres      []string `json:"genres,omitempty"`
	Rank        int      `json:"rank"`
	SourceScore float64  `json:"source_score,omitempty"`
}

// ServiceArtists is one source's ranked artist list. Weight scales every
// contribution from this source; zero means the default weight of 1.
type ServiceArtists struct {
	Service ServiceName `json:"service"`
	Artists []ArtistRef `json:"artists"`
	Weight  float64     `json:"weight,omitempty"`
}

// AggregatedArtist is one artist after folding all sources together.
// Name is the display form from the first source that mentioned the artist.
type AggregatedArtist struct {
	NormalizedName string        `json:"normalized_name"`
	Name           string        `json:"name"`
	Score          float64       `json:"score"`
	Genres         []string      `json:"genres,omitempty"`
	Sources        []ServiceName `json:"sources"`
}

// UserMusicProfile is a user's merged taste profile. TopArtists is sorted by
// accumulated score descending; equal scores keep first-discovery order.
// RecentArtists holds recently played artist names and is populated by the
// caller from whichever sources report listening history.
type UserMusicProfile struct {
	TopArtists        []AggregatedArtist `json:"top_artists"`
	TopGenres         []string           `json:"top_genres"`
	RecentArtists     []string           `json:"recent_artists,omitempty"`
	ConnectedServices []ServiceName      `json:"connected_services"`
}

// HasSignal reports whether the profile carries any artist or genre data at
// all. Scoring an empty profile is valid and degrades to the no-signal path.
func (p *UserMusicProfile) HasSignal() bool {
	if p == nil {
		return false
	}
	return len(p.TopArtists) > 0 || len(p.TopGenres) > 0 || len(p.RecentArtists) > 0
}
