// Package lastfm adapts the Last.fm API as a taste profile source.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/areyoudear/stageside-sub001/internal/source"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Adapter implements source.Source for the Last.fm API. Last.fm identifies
// users by username rather than OAuth token, so Credentials.ExternalUser
// carries the scrobbler account name.
type Adapter struct {
	client  *http.Client
	limiter *source.RateLimiterMap
	logger  *slog.Logger
	apiKey  string
	baseURL string
}

// New creates a Last.fm adapter with the default base URL.
func New(apiKey string, limiter *source.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(apiKey, limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(apiKey string, limiter *source.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("source", "lastfm")),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the service identifier.
func (a *Adapter) Name() taste.ServiceName { return taste.ServiceLastFM }

// RequiresAuth returns true; all calls need an API key and a username.
func (a *Adapter) RequiresAuth() bool { return true }

// TopArtists fetches the user's most-scrobbled artists, best first.
func (a *Adapter) TopArtists(ctx context.Context, creds source.Credentials, limit int) ([]taste.ArtistRef, error) {
	if creds.ExternalUser == "" {
		return nil, &source.ErrNotConnected{Service: taste.ServiceLastFM}
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	body, err := a.doRequest(ctx, url.Values{
		"method": {"user.gettopartists"},
		"user":   {creds.ExternalUser},
		"limit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	var resp topArtistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing top artists response: %w", err)
	}

	artists := make([]taste.ArtistRef, 0, len(resp.TopArtists.Artist))
	for i, item := range resp.TopArtists.Artist {
		playcount, _ := strconv.ParseFloat(item.Playcount, 64)
		artists = append(artists, taste.ArtistRef{
			Name:        item.Name,
			Rank:        i,
			SourceScore: playcount,
		})
	}

	a.logger.Debug("top artists fetched",
		slog.String("user", creds.ExternalUser),
		slog.Int("count", len(artists)))
	return artists, nil
}

// RecentArtists fetches distinct artists from the user's recent scrobbles.
func (a *Adapter) RecentArtists(ctx context.Context, creds source.Credentials, limit int) ([]taste.ArtistRef, error) {
	if creds.ExternalUser == "" {
		return nil, &source.ErrNotConnected{Service: taste.ServiceLastFM}
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	body, err := a.doRequest(ctx, url.Values{
		"method": {"user.getrecenttracks"},
		"user":   {creds.ExternalUser},
		"limit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	var resp recentTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recent tracks response: %w", err)
	}

	seen := make(map[string]bool)
	var artists []taste.ArtistRef
	for _, track := range resp.RecentTracks.Track {
		key := taste.Normalize(track.Artist.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		artists = append(artists, taste.ArtistRef{Name: track.Artist.Text, Rank: -1})
	}

	return artists, nil
}

// RelatedArtists fetches artists similar to the named one. The match degree
// Last.fm reports (0 to 1) is scaled into SourceScore.
func (a *Adapter) RelatedArtists(ctx context.Context, artistName string, limit int) ([]taste.ArtistRef, error) {
	if artistName == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	body, err := a.doRequest(ctx, url.Values{
		"method":      {"artist.getsimilar"},
		"artist":      {artistName},
		"autocorrect": {"1"},
		"limit":       {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	var resp similarArtistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing similar artists response: %w", err)
	}

	artists := make([]taste.ArtistRef, 0, len(resp.SimilarArtists.Artist))
	for _, item := range resp.SimilarArtists.Artist {
		match, _ := strconv.ParseFloat(item.Match, 64)
		artists = append(artists, taste.ArtistRef{
			Name:        item.Name,
			Rank:        -1,
			SourceScore: match * 100,
		})
	}

	return artists, nil
}

// doRequest executes a GET request against the Last.fm API and returns the
// response body.
func (a *Adapter) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	if a.apiKey == "" {
		return nil, &source.ErrAuthRequired{Service: taste.ServiceLastFM}
	}

	if err := a.limiter.Wait(ctx, taste.ServiceLastFM); err != nil {
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceLastFM,
			Cause:   fmt.Errorf("rate limiter: %w", err),
		}
	}

	params.Set("api_key", a.apiKey)
	params.Set("format", "json")
	reqURL := a.baseURL + "/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &source.ErrSourceUnavailable{Service: taste.ServiceLastFM, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusForbidden:
		return nil, &source.ErrAuthRequired{Service: taste.ServiceLastFM}
	case http.StatusTooManyRequests:
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceLastFM,
			Cause:   fmt.Errorf("rate limited by server"),
		}
	default:
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceLastFM,
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}
