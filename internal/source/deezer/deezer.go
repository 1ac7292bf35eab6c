// Package deezer adapts Deezer's API as a taste profile source. Related
// artist lookups use the public API; user listening data needs an access
// token obtained through Deezer's OAuth flow.
package deezer

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

const defaultBaseURL = "https://api.deezer.com"

// Adapter implements source.Source for the Deezer API.
type Adapter struct {
	client  *http.Client
	limiter *source.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *source.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *source.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("source", "deezer")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the service identifier.
func (a *Adapter) Name() taste.ServiceName { return taste.ServiceDeezer }

// RequiresAuth returns true; user listening data needs an access token.
// Related artist lookups work without one.
func (a *Adapter) RequiresAuth() bool { return true }

// TopArtists fetches the user's favorite artists, best first.
func (a *Adapter) TopArtists(ctx context.Context, creds source.Credentials, limit int) ([]taste.ArtistRef, error) {
	if creds.AccessToken == "" {
		return nil, &source.ErrNotConnected{Service: taste.ServiceDeezer}
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	params := url.Values{
		"access_token": {creds.AccessToken},
		"limit":        {strconv.Itoa(limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/user/me/artists?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp artistListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing favorite artists response: %w", err)
	}

	artists := make([]taste.ArtistRef, 0, len(resp.Data))
	for i, item := range resp.Data {
		artists = append(artists, taste.ArtistRef{
			Name:        item.Name,
			Rank:        i,
			SourceScore: float64(item.NbFan),
		})
	}

	a.logger.Debug("favorite artists fetched", slog.Int("count", len(artists)))
	return artists, nil
}

// RecentArtists fetches distinct artists from the user's listening history.
func (a *Adapter) RecentArtists(ctx context.Context, creds source.Credentials, limit int) ([]taste.ArtistRef, error) {
	if creds.AccessToken == "" {
		return nil, &source.ErrNotConnected{Service: taste.ServiceDeezer}
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	params := url.Values{
		"access_token": {creds.AccessToken},
		"limit":        {strconv.Itoa(limit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/user/me/history?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing history response: %w", err)
	}

	seen := make(map[string]bool)
	var artists []taste.ArtistRef
	for _, track := range resp.Data {
		key := taste.Normalize(track.Artist.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		artists = append(artists, taste.ArtistRef{Name: track.Artist.Name, Rank: -1})
	}

	return artists, nil
}

// RelatedArtists searches Deezer for the named artist and fetches related
// artists for the best hit. Fan counts go in SourceScore.
func (a *Adapter) RelatedArtists(ctx context.Context, artistName string, limit int) ([]taste.ArtistRef, error) {
	if artistName == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	params := url.Values{
		"q":     {artistName},
		"limit": {"1"},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/search/artist?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var search artistListResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	if len(search.Data) == 0 {
		return nil, nil
	}

	id := strconv.Itoa(search.Data[0].ID)
	body, err = a.doRequest(ctx, fmt.Sprintf("%s/artist/%s/related?limit=%d", a.baseURL, url.PathEscape(id), limit))
	if err != nil {
		return nil, err
	}

	var related artistListResponse
	if err := json.Unmarshal(body, &related); err != nil {
		return nil, fmt.Errorf("parsing related artists response: %w", err)
	}

	artists := make([]taste.ArtistRef, 0, len(related.Data))
	for _, item := range related.Data {
		artists = append(artists, taste.ArtistRef{
			Name:        item.Name,
			Rank:        -1,
			SourceScore: float64(item.NbFan),
		})
	}

	return artists, nil
}

// doRequest executes a GET request and returns the response body.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, taste.ServiceDeezer); err != nil {
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceDeezer,
			Cause:   fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &source.ErrSourceUnavailable{Service: taste.ServiceDeezer, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &source.ErrNotConnected{Service: taste.ServiceDeezer}
	case http.StatusTooManyRequests:
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceDeezer,
			Cause:   fmt.Errorf("rate limited by server"),
		}
	default:
		return nil, &source.ErrSourceUnavailable{
			Service: taste.ServiceDeezer,
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}
