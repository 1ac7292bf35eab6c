package deezer

// Wire types for the Deezer API responses this adapter consumes.

type artistListResponse struct {
	Data []struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		NbFan int    `json:"nb_fan"`
	} `json:"data"`
}

type historyResponse struct {
	Data []struct {
		Artist struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"data"`
}
