// Package concert stores concert listings and ranks them against taste
// profiles for users and groups.
package concert

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/areyoudear/stageside-sub001/internal/event"
	"github.com/areyoudear/stageside-sub001/internal/ticketing"
)

// Listing is a stored concert listing.
type Listing struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	Artists    []string  `json:"artists"`
	Genres     []string  `json:"genres"`
	Venue      string    `json:"venue"`
	City       string    `json:"city"`
	StartsAt   time.Time `json:"starts_at"`
	URL        string    `json:"url,omitempty"`
}

// ListQuery filters stored listings.
type ListQuery struct {
	City string
	From time.Time
}

// Service manages the listings store.
type Service struct {
	db     *sql.DB
	bus    *event.Bus
	logger *slog.Logger
}

// NewService creates a concert service.
func NewService(db *sql.DB, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With(slog.String("component", "concert")),
	}
}

// SyncListings upserts listings fetched from the ticketing feed and returns
// the number of rows written.
func (s *Service) SyncListings(ctx context.Context, events []ticketing.Event) (int, error) {
	count := 0
	for _, e := range events {
		if e.ExternalID == "" {
			continue
		}
		artistsJSON, err := json.Marshal(e.Artists)
		if err != nil {
			return count, fmt.Errorf("encoding artists: %w", err)
		}
		genresJSON, err := json.Marshal(e.Genres)
		if err != nil {
			return count, fmt.Errorf("encoding genres: %w", err)
		}

		var startsAt any
		if !e.StartsAt.IsZero() {
			startsAt = e.StartsAt.UTC().Format(time.RFC3339)
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO listings (id, external_id, title, artists, genres, venue, city, starts_at, url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(external_id) DO UPDATE SET
				title = excluded.title,
				artists = excluded.artists,
				genres = excluded.genres,
				venue = excluded.venue,
				city = excluded.city,
				starts_at = excluded.starts_at,
				url = excluded.url,
				synced_at = CURRENT_TIMESTAMP
		`, uuid.New().String(), e.ExternalID, e.Title, string(artistsJSON), string(genresJSON),
			e.Venue, e.City, startsAt, e.URL)
		if err != nil {
			return count, fmt.Errorf("upserting listing %s: %w", e.ExternalID, err)
		}
		count++
	}

	s.logger.Info("listings synced", slog.Int("count", count))
	if s.bus != nil && count > 0 {
		s.bus.Publish(event.Event{
			Type: event.LineupSynced,
			Data: map[string]any{"listings": count},
		})
	}
	return count, nil
}

// Listings returns stored listings matching the query, soonest first.
func (s *Service) Listings(ctx context.Context, q ListQuery) ([]Listing, error) {
	query := `
		SELECT id, external_id, title, artists, genres, venue, city, starts_at, url
		FROM listings WHERE 1=1`
	var args []any
	if q.City != "" {
		query += " AND city = ?"
		args = append(args, q.City)
	}
	if !q.From.IsZero() {
		query += " AND starts_at >= ?"
		args = append(args, q.From.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY starts_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing concerts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var listings []Listing
	for rows.Next() {
		var l Listing
		var artistsJSON, genresJSON string
		var startsAt sql.NullString
		if err := rows.Scan(&l.ID, &l.ExternalID, &l.Title, &artistsJSON, &genresJSON,
			&l.Venue, &l.City, &startsAt, &l.URL); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		if err := json.Unmarshal([]byte(artistsJSON), &l.Artists); err != nil {
			return nil, fmt.Errorf("decoding artists: %w", err)
		}
		if err := json.Unmarshal([]byte(genresJSON), &l.Genres); err != nil {
			return nil, fmt.Errorf("decoding genres: %w", err)
		}
		if startsAt.Valid {
			l.StartsAt, _ = time.Parse(time.RFC3339, startsAt.String)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
