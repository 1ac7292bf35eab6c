package spotify

// Wire types for the Spotify Web API responses this adapter consumes.

type artistObject struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

type topArtistsResponse struct {
	Items []artistObject `json:"items"`
}

type recentlyPlayedResponse struct {
	Items []struct {
		Track struct {
			Artists []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"track"`
	} `json:"items"`
}

type searchResponse struct {
	Artists struct {
		Items []artistObject `json:"items"`
	} `json:"artists"`
}

type relatedArtistsResponse struct {
	Artists []artistObject `json:"artists"`
}
