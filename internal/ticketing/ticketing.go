// Package ticketing fetches concert listings and festival lineups from the
// configured ticketing feed.
package ticketing

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

	"github.com/areyoudear/stageside-sub001/internal/festival"
)

// Event is a single concert listing from the feed.
type Event struct {
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	Artists    []string  `json:"artists"`
	Genres     []string  `json:"genres"`
	Venue      string    `json:"venue"`
	City       string    `json:"city"`
	StartsAt   time.Time `json:"starts_at"`
	URL        string    `json:"url"`
}

// Lineup is a festival's schedule as reported by the feed.
type Lineup struct {
	FestivalID string                  `json:"festival_id"`
	Name       string                  `json:"name"`
	Artists    []festival.LineupArtist `json:"artists"`
}

// Query filters event listings.
type Query struct {
	City string
	From time.Time
	To   time.Time
}

// ErrFeedUnavailable indicates a transient feed failure.
type ErrFeedUnavailable struct {
	Cause error
}

func (e *ErrFeedUnavailable) Error() string {
	return fmt.Sprintf("ticketing feed unavailable: %v", e.Cause)
}

func (e *ErrFeedUnavailable) Unwrap() error { return e.Cause }

// Client talks to the ticketing feed API.
type Client struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// NewClient creates a ticketing feed client.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With(slog.String("component", "ticketing")),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Events fetches concert listings matching the query.
func (c *Client) Events(ctx context.Context, q Query) ([]Event, error) {
	params := url.Values{}
	if q.City != "" {
		params.Set("city", q.City)
	}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}

	body, err := c.doRequest(ctx, c.baseURL+"/v1/events?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp eventsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing events response: %w", err)
	}

	events := make([]Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		startsAt, _ := time.Parse(time.RFC3339, e.StartsAt)
		events = append(events, Event{
			ExternalID: e.ID,
			Title:      e.Title,
			Artists:    e.Artists,
			Genres:     e.Genres,
			Venue:      e.Venue,
			City:       e.City,
			StartsAt:   startsAt,
			URL:        e.URL,
		})
	}

	c.logger.Debug("events fetched", slog.Int("count", len(events)))
	return events, nil
}

// FestivalLineup fetches the full schedule for a festival.
func (c *Client) FestivalLineup(ctx context.Context, festivalID string) (*Lineup, error) {
	if festivalID == "" {
		return nil, fmt.Errorf("festival id is required")
	}

	body, err := c.doRequest(ctx, c.baseURL+"/v1/festivals/"+url.PathEscape(festivalID)+"/lineup")
	if err != nil {
		return nil, err
	}

	var resp lineupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing lineup response: %w", err)
	}

	lineup := &Lineup{
		FestivalID: resp.FestivalID,
		Name:       resp.Name,
		Artists:    make([]festival.LineupArtist, 0, len(resp.Artists)),
	}
	for _, a := range resp.Artists {
		lineup.Artists = append(lineup.Artists, festival.LineupArtist{
			Name:      a.Name,
			Genres:    a.Genres,
			Day:       a.Day,
			Stage:     a.Stage,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
		})
	}

	return lineup, nil
}

// doRequest executes an authenticated GET request and returns the response body.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ErrFeedUnavailable{Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusNotFound:
		return nil, fmt.Errorf("not found: %s", reqURL)
	case http.StatusTooManyRequests:
		return nil, &ErrFeedUnavailable{Cause: fmt.Errorf("rate limited by server")}
	default:
		return nil, &ErrFeedUnavailable{Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
}
