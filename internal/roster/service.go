// Package roster manages friend groups and their membership.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a group or member does not exist.
var ErrNotFound = errors.New("not found")

// Group is a named set of users planning concerts together.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a user belonging to a group.
type Member struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// Service manages groups.
type Service struct {
	db *sql.DB
}

// NewService creates a roster service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// CreateGroup creates a group owned by the given user. The owner joins
// automatically.
func (s *Service) CreateGroup(ctx context.Context, ownerID, name string) (*Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	group := &Group{
		ID:        uuid.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO groups (id, name, owner_id) VALUES (?, ?, ?)
	`, group.ID, name, ownerID); err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id) VALUES (?, ?)
	`, group.ID, ownerID); err != nil {
		return nil, fmt.Errorf("adding owner to group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing group: %w", err)
	}
	return group, nil
}

// DeleteGroup removes a group. Only the owner may delete it.
func (s *Service) DeleteGroup(ctx context.Context, groupID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM groups WHERE id = ? AND owner_id = ?
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a single group by ID.
func (s *Service) Get(ctx context.Context, groupID string) (*Group, error) {
	var g Group
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at FROM groups WHERE id = ?
	`, groupID).Scan(&g.ID, &g.Name, &g.OwnerID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying group: %w", err)
	}
	g.CreatedAt = parseTimestamp(createdAt)
	return &g, nil
}

// GroupsForUser lists every group the user belongs to.
func (s *Service) GroupsForUser(ctx context.Context, userID string) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.owner_id, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var groups []Group
	for rows.Next() {
		var g Group
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		g.CreatedAt = parseTimestamp(createdAt)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AddMember adds a user to a group. Adding an existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.Get(ctx, groupID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id) VALUES (?, ?)
		ON CONFLICT(group_id, user_id) DO NOTHING
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a group.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM group_members WHERE group_id = ? AND user_id = ?
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Members lists a group's members in join order.
func (s *Service) Members(ctx context.Context, groupID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.user_id, u.username, m.joined_at
		FROM group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = ?
		ORDER BY m.joined_at
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var members []Member
	for rows.Next() {
		var m Member
		var joinedAt string
		if err := rows.Scan(&m.UserID, &m.Username, &joinedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.JoinedAt = parseTimestamp(joinedAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsMember reports whether the user belongs to the group.
func (s *Service) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?
	`, groupID, userID).Scan(&count)
	return count > 0, err
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
