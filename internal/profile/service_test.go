package profile

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/areyoudear/stageside-sub001/internal/database"
	"github.com/areyoudear/stageside-sub001/internal/encryption"
	"github.com/areyoudear/stageside-sub001/internal/source"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func insertUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, password_hash) VALUES (?, ?, 'x')`, id, "user-"+id)
	if err != nil {
		t.Fatalf("inserting user: %v", err)
	}
}

// fakeSource serves canned listening data and records failures on demand.
type fakeSource struct {
	name    taste.ServiceName
	top     []taste.ArtistRef
	recent  []taste.ArtistRef
	related map[string][]taste.ArtistRef
	fail    bool
}

func (f *fakeSource) Name() taste.ServiceName { return f.name }
func (f *fakeSource) RequiresAuth() bool      { return true }

func (f *fakeSource) TopArtists(_ context.Context, _ source.Credentials, _ int) ([]taste.ArtistRef, error) {
	if f.fail {
		return nil, &source.ErrSourceUnavailable{Service: f.name, Cause: errors.New("down")}
	}
	return f.top, nil
}

func (f *fakeSource) RecentArtists(_ context.Context, _ source.Credentials, _ int) ([]taste.ArtistRef, error) {
	if f.fail {
		return nil, &source.ErrSourceUnavailable{Service: f.name, Cause: errors.New("down")}
	}
	return f.recent, nil
}

func (f *fakeSource) RelatedArtists(_ context.Context, name string, _ int) ([]taste.ArtistRef, error) {
	return f.related[taste.Normalize(name)], nil
}

func testEncryptor(t *testing.T) *encryption.Encryptor {
	t.Helper()
	enc, _, err := encryption.NewEncryptor("")
	if err != nil {
		t.Fatalf("creating encryptor: %v", err)
	}
	return enc
}

func newTestService(t *testing.T, sources ...source.Source) (*Service, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	registry := source.NewRegistry()
	for _, s := range sources {
		registry.Register(s)
	}
	return NewService(db, registry, testEncryptor(t), nil, testLogger()), db
}

func TestConnectAndListServices(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	if _, err := svc.ConnectService(ctx, "u1", taste.ServiceSpotify, source.Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("ConnectService: %v", err)
	}

	services, err := svc.ConnectedServices(ctx, "u1")
	if err != nil {
		t.Fatalf("ConnectedServices: %v", err)
	}
	if len(services) != 1 || services[0].Service != taste.ServiceSpotify {
		t.Errorf("services = %+v, want one spotify link", services)
	}

	// Reconnecting replaces the stored credentials, not duplicates the row.
	if _, err := svc.ConnectService(ctx, "u1", taste.ServiceSpotify, source.Credentials{AccessToken: "tok2"}); err != nil {
		t.Fatalf("ConnectService again: %v", err)
	}
	services, _ = svc.ConnectedServices(ctx, "u1")
	if len(services) != 1 {
		t.Errorf("got %d links after reconnect, want 1", len(services))
	}
}

func TestDisconnectService(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	if _, err := svc.ConnectService(ctx, "u1", taste.ServiceLastFM, source.Credentials{ExternalUser: "casey"}); err != nil {
		t.Fatalf("ConnectService: %v", err)
	}
	if err := svc.DisconnectService(ctx, "u1", taste.ServiceLastFM); err != nil {
		t.Fatalf("DisconnectService: %v", err)
	}
	if err := svc.DisconnectService(ctx, "u1", taste.ServiceLastFM); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for a missing link", err)
	}
}

func TestManualArtists(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	artist, err := svc.AddManualArtist(ctx, "u1", "Khruangbin", []string{"psych rock"})
	if err != nil {
		t.Fatalf("AddManualArtist: %v", err)
	}

	artists, err := svc.ManualArtists(ctx, "u1")
	if err != nil {
		t.Fatalf("ManualArtists: %v", err)
	}
	if len(artists) != 1 || artists[0].Name != "Khruangbin" {
		t.Fatalf("artists = %+v, want Khruangbin", artists)
	}
	if len(artists[0].Genres) != 1 || artists[0].Genres[0] != "psych rock" {
		t.Errorf("Genres = %v", artists[0].Genres)
	}

	if err := svc.RemoveManualArtist(ctx, "u1", artist.ID); err != nil {
		t.Fatalf("RemoveManualArtist: %v", err)
	}
	if err := svc.RemoveManualArtist(ctx, "u1", artist.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for a removed artist", err)
	}
}

func TestBuildAggregatesSources(t *testing.T) {
	spotify := &fakeSource{
		name: taste.ServiceSpotify,
		top: []taste.ArtistRef{
			{Name: "Tame Impala", Rank: 0, Genres: []string{"psych rock"}},
			{Name: "Khruangbin", Rank: 1},
		},
		recent: []taste.ArtistRef{{Name: "Men I Trust", Rank: -1}},
	}
	svc, db := newTestService(t, spotify)
	ctx := context.Background()
	insertUser(t, db, "u1")

	if _, err := svc.ConnectService(ctx, "u1", taste.ServiceSpotify, source.Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("ConnectService: %v", err)
	}

	profile, err := svc.Build(ctx, "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(profile.TopArtists) != 2 {
		t.Fatalf("TopArtists = %d, want 2", len(profile.TopArtists))
	}
	if profile.TopArtists[0].Name != "Tame Impala" {
		t.Errorf("top artist = %q", profile.TopArtists[0].Name)
	}
	if len(profile.RecentArtists) != 1 || profile.RecentArtists[0] != "Men I Trust" {
		t.Errorf("RecentArtists = %v", profile.RecentArtists)
	}

	// The build must be cached.
	cached, err := svc.Cached(ctx, "u1")
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if len(cached.TopArtists) != 2 {
		t.Errorf("cached TopArtists = %d, want 2", len(cached.TopArtists))
	}
}

func TestBuildDegradesOnSourceFailure(t *testing.T) {
	broken := &fakeSource{name: taste.ServiceSpotify, fail: true}
	svc, db := newTestService(t, broken)
	ctx := context.Background()
	insertUser(t, db, "u1")

	if _, err := svc.ConnectService(ctx, "u1", taste.ServiceSpotify, source.Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("ConnectService: %v", err)
	}
	if _, err := svc.AddManualArtist(ctx, "u1", "Backup Plan", nil); err != nil {
		t.Fatalf("AddManualArtist: %v", err)
	}

	profile, err := svc.Build(ctx, "u1")
	if err != nil {
		t.Fatalf("Build must not fail when a source is down: %v", err)
	}
	if len(profile.TopArtists) != 1 || profile.TopArtists[0].Name != "Backup Plan" {
		t.Errorf("TopArtists = %+v, want the manual artist only", profile.TopArtists)
	}
}

func TestBuildExpandsRelatedArtists(t *testing.T) {
	spotify := &fakeSource{
		name: taste.ServiceSpotify,
		top:  []taste.ArtistRef{{Name: "Radiohead", Rank: 0}},
		related: map[string][]taste.ArtistRef{
			"radiohead": {{Name: "Portishead", Rank: -1, SourceScore: 80}},
		},
	}
	svc, db := newTestService(t, spotify)
	ctx := context.Background()
	insertUser(t, db, "u1")

	if _, err := svc.ConnectService(ctx, "u1", taste.ServiceSpotify, source.Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("ConnectService: %v", err)
	}

	profile, err := svc.Build(ctx, "u1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var foundRelated bool
	for _, artist := range profile.TopArtists {
		if artist.NormalizedName == "portishead" {
			foundRelated = true
			if artist.Score >= profile.TopArtists[0].Score {
				t.Error("related artists must not outrank direct listening data")
			}
		}
	}
	if !foundRelated {
		t.Error("expected the related artist in the profile")
	}
}

func TestCachedMissing(t *testing.T) {
	svc, db := newTestService(t)
	insertUser(t, db, "u1")
	if _, err := svc.Cached(context.Background(), "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTokensEncryptedAtRest(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	insertUser(t, db, "u1")

	if _, err := svc.ConnectService(ctx, "u1", taste.ServiceSpotify, source.Credentials{
		AccessToken:  "secret-access",
		RefreshToken: "secret-refresh",
	}); err != nil {
		t.Fatalf("ConnectService: %v", err)
	}

	var stored string
	if err := db.QueryRow(`SELECT access_token FROM connected_services WHERE user_id = 'u1'`).Scan(&stored); err != nil {
		t.Fatalf("reading stored token: %v", err)
	}
	if stored == "secret-access" {
		t.Error("access token stored in plaintext")
	}

	creds, err := svc.credentials(ctx, "u1", taste.ServiceSpotify)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.AccessToken != "secret-access" || creds.RefreshToken != "secret-refresh" {
		t.Errorf("round-tripped creds = %+v", creds)
	}
}
