// Package source defines the interface for streaming service adapters that
// supply listening data for taste profiles.
package source

import (
	"context"
	"fmt"

	"github.com/areyoudear/stageside-sub001/internal/taste"
)

// Credentials carries per-user tokens for a connected service. Sources that
// need no authentication ignore it.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExternalUser string
}

// Source is the interface all streaming service adapters implement.
type Source interface {
	// Name returns the unique service identifier.
	Name() taste.ServiceName

	// RequiresAuth returns true if this source needs per-user credentials.
	RequiresAuth() bool

	// TopArtists fetches the user's most-listened artists, best first.
	TopArtists(ctx context.Context, creds Credentials, limit int) ([]taste.ArtistRef, error)

	// RecentArtists fetches artists from the user's recent listening history.
	RecentArtists(ctx context.Context, creds Credentials, limit int) ([]taste.ArtistRef, error)

	// RelatedArtists fetches artists similar to the named one. Results carry
	// no rank; similarity goes in SourceScore.
	RelatedArtists(ctx context.Context, artistName string, limit int) ([]taste.ArtistRef, error)
}

// ErrSourceUnavailable indicates a transient failure (rate-limited, timeout,
// server error). Profile builds degrade rather than fail on it.
type ErrSourceUnavailable struct {
	Service taste.ServiceName
	Cause   error
}

func (e *ErrSourceUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Service, e.Cause)
}

func (e *ErrSourceUnavailable) Unwrap() error { return e.Cause }

// ErrNotConnected indicates the user has not linked this service.
type ErrNotConnected struct {
	Service taste.ServiceName
}

func (e *ErrNotConnected) Error() string {
	return fmt.Sprintf("source %s: not connected", e.Service)
}

// ErrAuthRequired indicates the source needs an API key or token but none is
// configured.
type ErrAuthRequired struct {
	Service taste.ServiceName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("source %s: credentials not configured", e.Service)
}
