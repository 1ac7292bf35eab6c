// Package profile manages connected services, manual artists, and building
// aggregated taste profiles.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/areyoudear/stageside-sub001/internal/encryption"
	"github.com/areyoudear/stageside-sub001/internal/event"
	"github.com/areyoudear/stageside-sub001/internal/source"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

const (
	topArtistsPerSource    = 50
	recentArtistsPerSource = 50
	relatedSeedArtists     = 5
	relatedPerSeed         = 10
	relatedSourceWeight    = 0.3
	manualSourceWeight     = 1.5
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ConnectedService is a user's link to a streaming service.
type ConnectedService struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Service      taste.ServiceName `json:"service"`
	ExternalUser string            `json:"external_user,omitempty"`
	ConnectedAt  time.Time         `json:"connected_at"`
}

// ManualArtist is an artist the user added by hand.
type ManualArtist struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Name    string    `json:"name"`
	Genres  []string  `json:"genres,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Service manages taste profiles and their inputs. Service tokens are
// encrypted at rest.
type Service struct {
	db        *sql.DB
	sources   *source.Registry
	encryptor *encryption.Encryptor
	bus       *event.Bus
	logger    *slog.Logger
}

// NewService creates a profile service.
func NewService(db *sql.DB, sources *source.Registry, enc *encryption.Encryptor, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		sources:   sources,
		encryptor: enc,
		bus:       bus,
		logger:    logger.With(slog.String("component", "profile")),
	}
}

// ConnectService links a streaming service to the user, replacing any
// existing link for the same service.
func (s *Service) ConnectService(ctx context.Context, userID string, name taste.ServiceName, creds source.Credentials) (*ConnectedService, error) {
	accessToken, err := s.encryptor.Encrypt(creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}
	refreshToken, err := s.encryptor.Encrypt(creds.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting refresh token: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO connected_services (id, user_id, service, access_token, refresh_token, external_user)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, service) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			external_user = excluded.external_user,
			connected_at = CURRENT_TIMESTAMP
	`, id, userID, string(name), accessToken, refreshToken, creds.ExternalUser)
	if err != nil {
		return nil, fmt.Errorf("connecting service: %w", err)
	}

	services, err := s.ConnectedServices(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range services {
		if services[i].Service == name {
			return &services[i], nil
		}
	}
	return nil, ErrNotFound
}

// DisconnectService removes a user's link to a streaming service.
func (s *Service) DisconnectService(ctx context.Context, userID string, name taste.ServiceName) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM connected_services WHERE user_id = ? AND service = ?
	`, userID, string(name))
	if err != nil {
		return fmt.Errorf("disconnecting service: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConnectedServices lists the user's linked services.
func (s *Service) ConnectedServices(ctx context.Context, userID string) ([]ConnectedService, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, service, external_user, connected_at
		FROM connected_services WHERE user_id = ? ORDER BY connected_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing connected services: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var services []ConnectedService
	for rows.Next() {
		var cs ConnectedService
		var service, connectedAt string
		if err := rows.Scan(&cs.ID, &cs.UserID, &service, &cs.ExternalUser, &connectedAt); err != nil {
			return nil, fmt.Errorf("scanning connected service: %w", err)
		}
		cs.Service = taste.ServiceName(service)
		cs.ConnectedAt = parseTimestamp(connectedAt)
		services = append(services, cs)
	}
	return services, rows.Err()
}

// credentials loads and decrypts the stored tokens for a user's service link.
func (s *Service) credentials(ctx context.Context, userID string, name taste.ServiceName) (source.Credentials, error) {
	var creds source.Credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, external_user
		FROM connected_services WHERE user_id = ? AND service = ?
	`, userID, string(name)).Scan(&creds.AccessToken, &creds.RefreshToken, &creds.ExternalUser)
	if errors.Is(err, sql.ErrNoRows) {
		return creds, &source.ErrNotConnected{Service: name}
	}
	if err != nil {
		return creds, err
	}

	if creds.AccessToken, err = s.encryptor.Decrypt(creds.AccessToken); err != nil {
		return creds, fmt.Errorf("decrypting access token: %w", err)
	}
	if creds.RefreshToken, err = s.encryptor.Decrypt(creds.RefreshToken); err != nil {
		return creds, fmt.Errorf("decrypting refresh token: %w", err)
	}
	return creds, nil
}

// AddManualArtist records an artist the user follows outside any service.
func (s *Service) AddManualArtist(ctx context.Context, userID, name string, genres []string) (*ManualArtist, error) {
	normalized := taste.Normalize(name)
	if normalized == "" {
		return nil, fmt.Errorf("artist name is required")
	}

	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return nil, fmt.Errorf("encoding genres: %w", err)
	}

	artist := &ManualArtist{
		ID:      uuid.New().String(),
		UserID:  userID,
		Name:    name,
		Genres:  genres,
		AddedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO manual_artists (id, user_id, name, normalized_name, genres)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, normalized_name) DO UPDATE SET
			name = excluded.name,
			genres = excluded.genres
	`, artist.ID, userID, name, normalized, string(genresJSON))
	if err != nil {
		return nil, fmt.Errorf("adding manual artist: %w", err)
	}
	return artist, nil
}

// RemoveManualArtist deletes a manually added artist.
func (s *Service) RemoveManualArtist(ctx context.Context, userID, artistID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM manual_artists WHERE user_id = ? AND id = ?
	`, userID, artistID)
	if err != nil {
		return fmt.Errorf("removing manual artist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ManualArtists lists the user's manually added artists.
func (s *Service) ManualArtists(ctx context.Context, userID string) ([]ManualArtist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, genres, added_at
		FROM manual_artists WHERE user_id = ? ORDER BY added_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing manual artists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var artists []ManualArtist
	for rows.Next() {
		var ma ManualArtist
		var genresJSON, addedAt string
		if err := rows.Scan(&ma.ID, &ma.UserID, &ma.Name, &genresJSON, &addedAt); err != nil {
			return nil, fmt.Errorf("scanning manual artist: %w", err)
		}
		if err := json.Unmarshal([]byte(genresJSON), &ma.Genres); err != nil {
			return nil, fmt.Errorf("decoding genres: %w", err)
		}
		ma.AddedAt = parseTimestamp(addedAt)
		artists = append(artists, ma)
	}
	return artists, rows.Err()
}

// Build fetches listening data from every connected service, folds in manual
// artists and related-artist expansion, and caches the aggregated profile.
// A source that fails contributes nothing rather than failing the build.
func (s *Service) Build(ctx context.Context, userID string) (*taste.UserMusicProfile, error) {
	connected, err := s.ConnectedServices(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		mu          sync.Mutex
		serviceData []taste.ServiceArtists
		recentNames []string
	)

	var wg sync.WaitGroup
	for _, cs := range connected {
		src := s.sources.Get(cs.Service)
		if src == nil {
			s.logger.Warn("no adapter registered for connected service",
				slog.String("service", string(cs.Service)))
			continue
		}

		creds, err := s.credentials(ctx, userID, cs.Service)
		if err != nil {
			s.logger.Warn("loading credentials failed",
				slog.String("service", string(cs.Service)), slog.Any("error", err))
			continue
		}

		wg.Add(1)
		go func(src source.Source, creds source.Credentials) {
			defer wg.Done()

			top, err := src.TopArtists(ctx, creds, topArtistsPerSource)
			if err != nil {
				s.logger.Warn("fetching top artists failed",
					slog.String("service", string(src.Name())), slog.Any("error", err))
				top = nil
			}

			recent, err := src.RecentArtists(ctx, creds, recentArtistsPerSource)
			if err != nil {
				s.logger.Warn("fetching recent artists failed",
					slog.String("service", string(src.Name())), slog.Any("error", err))
				recent = nil
			}

			mu.Lock()
			defer mu.Unlock()
			serviceData = append(serviceData, taste.ServiceArtists{
				Service: src.Name(),
				Artists: top,
			})
			for _, r := range recent {
				recentNames = append(recentNames, r.Name)
			}
		}(src, creds)
	}
	wg.Wait()

	manual, err := s.ManualArtists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(manual) > 0 {
		refs := make([]taste.ArtistRef, len(manual))
		for i, ma := range manual {
			refs[i] = taste.ArtistRef{Name: ma.Name, Genres: ma.Genres, Rank: i}
		}
		serviceData = append(serviceData, taste.ServiceArtists{
			Service: taste.ServiceManual,
			Artists: refs,
			Weight:  manualSourceWeight,
		})
	}

	if related := s.expandRelated(ctx, serviceData); len(related) > 0 {
		serviceData = append(serviceData, taste.ServiceArtists{
			Service: taste.ServiceRelated,
			Artists: related,
			Weight:  relatedSourceWeight,
		})
	}

	profile := taste.Aggregate(serviceData)
	profile.RecentArtists = recentNames

	if err := s.cacheProfile(ctx, userID, profile); err != nil {
		s.logger.Warn("caching profile failed", slog.Any("error", err))
	}

	if s.bus != nil {
		s.bus.Publish(event.Event{
			Type: event.ProfileRefreshed,
			Data: map[string]any{
				"user_id": userID,
				"artists": len(profile.TopArtists),
			},
		})
	}

	return profile, nil
}

// expandRelated fetches similar artists for the strongest profile entries.
// The first registered source able to answer is used.
func (s *Service) expandRelated(ctx context.Context, serviceData []taste.ServiceArtists) []taste.ArtistRef {
	seeds := seedArtists(serviceData, relatedSeedArtists)
	if len(seeds) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var related []taste.ArtistRef
	for _, seed := range seeds {
		seen[taste.Normalize(seed)] = true
	}

	for _, seed := range seeds {
		for _, src := range s.sources.All() {
			refs, err := src.RelatedArtists(ctx, seed, relatedPerSeed)
			if err != nil {
				s.logger.Debug("related artist lookup failed",
					slog.String("service", string(src.Name())),
					slog.String("artist", seed), slog.Any("error", err))
				continue
			}
			if len(refs) == 0 {
				continue
			}
			for _, ref := range refs {
				key := taste.Normalize(ref.Name)
				if key == "" || seen[key] {
					continue
				}
				seen[key] = true
				related = append(related, ref)
			}
			break
		}
	}
	return related
}

// seedArtists picks the best-ranked artist names across all sources.
func seedArtists(serviceData []taste.ServiceArtists, limit int) []string {
	profile := taste.Aggregate(serviceData)
	var seeds []string
	for _, artist := range profile.TopArtists {
		if len(seeds) >= limit {
			break
		}
		seeds = append(seeds, artist.Name)
	}
	return seeds
}

// cacheProfile stores the built profile as JSON.
func (s *Service) cacheProfile(ctx context.Context, userID string, profile *taste.UserMusicProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile_cache (user_id, profile, built_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			profile = excluded.profile,
			built_at = CURRENT_TIMESTAMP
	`, userID, string(data))
	return err
}

// Cached returns the most recently built profile, or ErrNotFound if the user
// has never built one.
func (s *Service) Cached(ctx context.Context, userID string) (*taste.UserMusicProfile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT profile FROM profile_cache WHERE user_id = ?
	`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading cached profile: %w", err)
	}

	var profile taste.UserMusicProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("decoding cached profile: %w", err)
	}
	return &profile, nil
}

// CachedOrBuild returns the cached profile when present, building one
// otherwise.
func (s *Service) CachedOrBuild(ctx context.Context, userID string) (*taste.UserMusicProfile, error) {
	profile, err := s.Cached(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return s.Build(ctx, userID)
	}
	return profile, err
}

// parseTimestamp handles the formats SQLite emits for CURRENT_TIMESTAMP.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
