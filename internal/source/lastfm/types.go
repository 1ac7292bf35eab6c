package lastfm

// Wire types for the Last.fm API responses this adapter consumes. Last.fm
// returns numbers as JSON strings.

type topArtistsResponse struct {
	TopArtists struct {
		Artist []struct {
			Name      string `json:"name"`
			Playcount string `json:"playcount"`
		} `json:"artist"`
	} `json:"topartists"`
}

type recentTracksResponse struct {
	RecentTracks struct {
		Track []struct {
			Artist struct {
				Text string `json:"#text"`
			} `json:"artist"`
		} `json:"track"`
	} `json:"recenttracks"`
}

type similarArtistsResponse struct {
	SimilarArtists struct {
		Artist []struct {
			Name  string `json:"name"`
			Match string `json:"match"`
		} `json:"artist"`
	} `json:"similarartists"`
}
