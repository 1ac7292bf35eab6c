package ticketing

// Wire types for the ticketing feed responses this client consumes.

type eventsResponse struct {
	Events []struct {
		ID       string   `json:"id"`
		Title    string   `json:"title"`
		Artists  []string `json:"artists"`
		Genres   []string `json:"genres"`
		Venue    string   `json:"venue"`
		City     string   `json:"city"`
		StartsAt string   `json:"starts_at"`
		URL      string   `json:"url"`
	} `json:"events"`
}

type lineupResponse struct {
	FestivalID string `json:"festival_id"`
	Name       string `json:"name"`
	Artists    []struct {
		Name      string   `json:"name"`
		Genres    []string `json:"genres"`
		Day       string   `json:"day"`
		Stage     string   `json:"stage"`
		StartTime string   `json:"start_time"`
		EndTime   string   `json:"end_time"`
	} `json:"artists"`
}
