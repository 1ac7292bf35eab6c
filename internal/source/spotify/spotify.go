// Package spotify adapts the Spotify Web API as a taste profile source.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/areyoudear/stageside-sub001/internal/source"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	tokenURL       = "https://accounts.spotify.com/api/token" //nolint:gosec // G101: not a credential
)

// Adapter implements source.Source for the Spotify Web API. Each call builds
// an oauth2 client from the user's access token; calls without one fall back
// to the app's client-credentials grant when configured.
type Adapter struct {
	limiter *source.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	appConf *clientcredentials.Config
}

// New creates a Spotify adapter with the default base URL.
func New(limiter *source.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Spotify adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *source.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		limiter: limiter,
		logger:  logger.With(slog.String("source", "spotify")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetAppCredentials enables the client-credentials grant for calls that need
// no user context, such as search and related-artist lookups.
func (a *Adapter) SetAppCredentials(clientID, clientSecret string) {
	if clientID == "" || clientSecret == "" {
		return
	}
	a.appConf = &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
}

// Name returns the service identifier.
func (a *Adapter) Name() taste.ServiceName { return taste.ServiceSpotify }

// RequiresAuth returns true; all Spotify endpoints need a user token.
func (a *Adapter) RequiresAuth() bool { return true }

// TopArtists fetches the user's top artists from Spotify, best first.
func (a *Adapter) TopArtists(ctx context.Context, creds source.Credentials, limit int) ([]taste.ArtistRef, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	reqURL := fmt.Sprintf("%s/me/top/artists?limit=%d", a.baseURL, limit)

	body, err := a.doRequest(ctx, creds, reqURL)
	if err != nil {
		return nil, err
	}

	var resp topArtistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing top artists response: %w", err)
	}

	artists := make([]taste.ArtistRef, 0, len(resp.Items))
	for i, item := range resp.Items {
		artists = append(artists, taste.ArtistRef{
			Name:        item.Name,
			Genres:      item.Genres,
			Rank:        i,
			SourceScore: float64(item.Popularity),
		})
	}

	a.logger.Debug("top artists fetched", slog.Int("count", len(artists)))
	return artists, nil
}

// RecentArtists fetches distinct artists from the user's recently played
// tracks, most recent first.
func (a *Adapter) RecentArtists(ctx context.Context, creds source.Credentials, limit int) ([]taste.ArtistRef, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	reqURL := fmt.Sprintf("%s/me/player/recently-played?limit=%d", a.baseURL, limit)

	body, err := a.doRequest(ctx, creds, reqURL)
	if err != nil {
		return nil, err
	}

	var resp recentlyPlayedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recently played response: %w", err)
	}

	seen := make(map[string]bool)
	var artists []taste.ArtistRef
	for _, item := range resp.Items {
		for _, artist := range item.Track.Artists {
			key := taste.Normalize(artist.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			artists = append(artists, taste.ArtistRef{Name: artist.Name, Rank: -1})
		}
	}

	return artists, nil
}

// RelatedArtists searches for the named artist and fetches Spotify's related
// artists for the best hit.
func (a *Adapter) RelatedArtists(ctx context.Context, artistName string, limit int) ([]taste.ArtistRef, error) {
	if artistName == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 20 {
		limit = 20
	}

	params := url.Values{
		"q":     {artistName},
		"type":  {"artist"},
		"limit": {"1"},
	}
	body, err := a.doRequest(ctx, source.Credentials{}, a.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	if len(search.Artists.Items) == 0 {
		return nil, nil
	}

	id := search.Artists.Items[0].ID
	body, err = a.doRequest(ctx, source.Credentials{},
		fmt.Sprintf("%s/artists/%s/related-artists", a.baseURL, url.PathEscape(id)))
	if err != nil {
		return nil, err
	}

	var related relatedArtistsResponse
	if err := json.Unmarshal(body, &related); err != nil {
		return nil, fmt.Errorf("parsing related artists response: %w", err)
	}

	artists := make([]taste.ArtistRef, 0, limit)
	for _, item := range related.Artists {
		if len(artists) >= limit {
			break
		}
		artists = append(artists, taste.ArtistRef{
			Name:        item.Name,
			Genres:      item.Genres,
			Rank:        -1,
			SourceScore: float64(item.Popularity),
		})
	}

	return artists, nil
}

// doRequest executes a GET request with the user's bearer token and returns
// the response body.
func (a *Adapter) doRequest(ctx context.Context, creds source.Credentials, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, taste.ServiceSpotify); err != nil {
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceSpotify,
			Cause:   fmt.Errorf("rate limiter: %w", err),
		}
	}

	client := a.httpClient(ctx, creds)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &source.ErrSourceUnavailable{Service: taste.ServiceSpotify, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &source.ErrNotConnected{Service: taste.ServiceSpotify}
	case http.StatusTooManyRequests:
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceSpotify,
			Cause:   fmt.Errorf("rate limited by server"),
		}
	default:
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceSpotify,
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}

// httpClient wraps the user token in an oauth2 transport. Without a token the
// app's client-credentials client is used when configured; otherwise a plain
// client, and Spotify's 401 maps to ErrNotConnected.
func (a *Adapter) httpClient(ctx context.Context, creds source.Credentials) *http.Client {
	if creds.AccessToken == "" {
		if a.appConf != nil {
			client := a.appConf.Client(ctx)
			client.Timeout = 10 * time.Second
			return client
		}
		return &http.Client{Timeout: 10 * time.Second}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = 10 * time.Second
	return client
}
