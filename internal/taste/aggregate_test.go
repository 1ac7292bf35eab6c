package taste

import "testing"

func TestAggregateCrossServiceFavoriteOutranks(t *testing.T) {
	profile := Aggregate([]ServiceArtists{
		{
			Service: ServiceSpotify,
			Artists: []ArtistRef{
				{Name: "Solo Hit", Rank: 0, Genres: []string{"pop"}},
				{Name: "Tame Impala", Rank: 1, Genres: []string{"psych rock"}},
			},
		},
		{
			Service: ServiceLastFM,
			Artists: []ArtistRef{
				{Name: "tame impala", Rank: 4, Genres: []string{"rock"}},
			},
		},
	})

	if len(profile.TopArtists) != 2 {
		t.Fatalf("TopArtists = %d, want 2", len(profile.TopArtists))
	}
	top := profile.TopArtists[0]
	if top.NormalizedName != "tame impala" {
		t.Errorf("top artist = %q, want the cross-service favorite", top.NormalizedName)
	}
	if len(top.Sources) != 2 {
		t.Errorf("Sources = %v, want both services", top.Sources)
	}
	if top.Name != "Tame Impala" {
		t.Errorf("display name = %q, want first-seen form", top.Name)
	}
	if len(top.Genres) != 2 {
		t.Errorf("Genres = %v, want union of both sources", top.Genres)
	}
}

func TestAggregateTiesKeepDiscoveryOrder(t *testing.T) {
	profile := Aggregate([]ServiceArtists{
		{
			Service: ServiceSpotify,
			Artists: []ArtistRef{
				{Name: "First Seen", Rank: 2},
				{Name: "Second Seen", Rank: 2},
			},
		},
	})

	if profile.TopArtists[0].Name != "First Seen" {
		t.Errorf("equal scores must keep discovery order, got %q first", profile.TopArtists[0].Name)
	}
}

func TestAggregateRankDecay(t *testing.T) {
	profile := Aggregate([]ServiceArtists{
		{
			Service: ServiceSpotify,
			Artists: []ArtistRef{
				{Name: "Head", Rank: 0},
				{Name: "Tail", Rank: 60},
			},
		},
	})

	head, tail := profile.TopArtists[0], profile.TopArtists[1]
	if head.Name != "Head" {
		t.Fatalf("top artist = %q, want Head", head.Name)
	}
	if head.Score != 100 {
		t.Errorf("rank 0 score = %v, want 100", head.Score)
	}
	if tail.Score != 1 {
		t.Errorf("deep rank score = %v, want floor of 1", tail.Score)
	}
}

func TestAggregateSourceWeight(t *testing.T) {
	profile := Aggregate([]ServiceArtists{
		{Service: ServiceSpotify, Artists: []ArtistRef{{Name: "A", Rank: 0}}},
		{Service: ServiceManual, Weight: 2, Artists: []ArtistRef{{Name: "B", Rank: 0}}},
	})

	if profile.TopArtists[0].Name != "B" {
		t.Errorf("weighted manual entry should outrank, got %q first", profile.TopArtists[0].Name)
	}
	if profile.TopArtists[0].Score != 200 {
		t.Errorf("Score = %v, want 200", profile.TopArtists[0].Score)
	}
}

func TestAggregateUnrankedUsesSourceScore(t *testing.T) {
	profile := Aggregate([]ServiceArtists{
		{Service: ServiceRelated, Artists: []ArtistRef{
			{Name: "Popular", Rank: -1, SourceScore: 40},
			{Name: "Obscure", Rank: -1},
		}},
	})

	if profile.TopArtists[0].Name != "Popular" {
		t.Errorf("top artist = %q, want SourceScore winner", profile.TopArtists[0].Name)
	}
	if profile.TopArtists[1].Score != 1 {
		t.Errorf("unranked score = %v, want default of 1", profile.TopArtists[1].Score)
	}
}

func TestAggregateTopGenresByFrequency(t *testing.T) {
	profile := Aggregate([]ServiceArtists{
		{Service: ServiceSpotify, Artists: []ArtistRef{
			{Name: "A", Rank: 0, Genres: []string{"Indie", "Rock"}},
			{Name: "B", Rank: 1, Genres: []string{"indie"}},
			{Name: "C", Rank: 2, Genres: []string{"Jazz"}},
		}},
	})

	if len(profile.TopGenres) != 3 {
		t.Fatalf("TopGenres = %v, want 3 entries", profile.TopGenres)
	}
	if profile.TopGenres[0] != "indie" {
		t.Errorf("TopGenres[0] = %q, want the most frequent genre", profile.TopGenres[0])
	}
}

func TestAggregateEmptySources(t *testing.T) {
	profile := Aggregate([]ServiceArtists{
		{Service: ServiceSpotify},
		{Service: ServiceLastFM, Artists: []ArtistRef{{Name: "Only One", Rank: 0}}},
	})

	if len(profile.TopArtists) != 1 {
		t.Fatalf("TopArtists = %d, want 1", len(profile.TopArtists))
	}
	if len(profile.ConnectedServices) != 1 || profile.ConnectedServices[0] != ServiceLastFM {
		t.Errorf("ConnectedServices = %v, want only the non-empty source", profile.ConnectedServices)
	}

	empty := Aggregate(nil)
	if empty == nil || len(empty.TopArtists) != 0 {
		t.Errorf("Aggregate(nil) should yield a valid empty profile, got %+v", empty)
	}
}
