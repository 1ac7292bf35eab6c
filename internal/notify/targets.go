// Package notify delivers concert digests and event notifications to
// user-configured webhook targets.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a target does not exist.
var ErrNotFound = errors.New("not found")

// Target is a webhook endpoint a user wants notifications sent to.
type Target struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	MinScore  float64   `json:"min_score"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages notification targets.
type Service struct {
	db *sql.DB
}

// NewService creates a notify service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// AddTarget registers a webhook target for the user.
func (s *Service) AddTarget(ctx context.Context, userID, url string, events []string, minScore float64) (*Target, error) {
	if url == "" {
		return nil, fmt.Errorf("target url is required")
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encoding events: %w", err)
	}

	target := &Target{
		ID:        uuid.New().String(),
		UserID:    userID,
		URL:       url,
		Events:    events,
		MinScore:  minScore,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notify_targets (id, user_id, url, events, min_score, enabled)
		VALUES (?, ?, ?, ?, ?, 1)
	`, target.ID, userID, url, string(eventsJSON), minScore)
	if err != nil {
		return nil, fmt.Errorf("adding target: %w", err)
	}
	return target, nil
}

// RemoveTarget deletes a user's webhook target.
func (s *Service) RemoveTarget(ctx context.Context, userID, targetID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notify_targets WHERE user_id = ? AND id = ?
	`, userID, targetID)
	if err != nil {
		return fmt.Errorf("removing target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled toggles delivery for a target.
func (s *Service) SetEnabled(ctx context.Context, userID, targetID string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notify_targets SET enabled = ? WHERE user_id = ? AND id = ?
	`, boolToInt(enabled), userID, targetID)
	if err != nil {
		return fmt.Errorf("updating target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Targets lists a user's webhook targets.
func (s *Service) Targets(ctx context.Context, userID string) ([]Target, error) {
	return s.query(ctx, `
		SELECT id, user_id, url, events, min_score, enabled, created_at
		FROM notify_targets WHERE user_id = ? ORDER BY created_at
	`, userID)
}

// ListByEvent returns every enabled target subscribed to the given event type.
func (s *Service) ListByEvent(ctx context.Context, eventType string) ([]Target, error) {
	targets, err := s.query(ctx, `
		SELECT id, user_id, url, events, min_score, enabled, created_at
		FROM notify_targets WHERE enabled = 1 ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}

	var matched []Target
	for _, target := range targets {
		for _, e := range target.Events {
			if e == eventType {
				matched = append(matched, target)
				break
			}
		}
	}
	return matched, nil
}

func (s *Service) query(ctx context.Context, q string, args ...any) ([]Target, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var targets []Target
	for rows.Next() {
		var t Target
		var eventsJSON, createdAt string
		var enabled int
		if err := rows.Scan(&t.ID, &t.UserID, &t.URL, &eventsJSON, &t.MinScore, &enabled, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning target: %w", err)
		}
		if err := json.Unmarshal([]byte(eventsJSON), &t.Events); err != nil {
			return nil, fmt.Errorf("decoding events: %w", err)
		}
		t.Enabled = enabled != 0
		t.CreatedAt = parseTimestamp(createdAt)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
