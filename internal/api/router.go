// Package api exposes the application over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/areyoudear/stageside-sub001/internal/api/middleware"
	"github.com/areyoudear/stageside-sub001/internal/auth"
	"github.com/areyoudear/stageside-sub001/internal/backup"
	"github.com/areyoudear/stageside-sub001/internal/concert"
	"github.com/areyoudear/stageside-sub001/internal/festival"
	"github.com/areyoudear/stageside-sub001/internal/maintenance"
	"github.com/areyoudear/stageside-sub001/internal/notify"
	"github.com/areyoudear/stageside-sub001/internal/profile"
	"github.com/areyoudear/stageside-sub001/internal/roster"
	"github.com/areyoudear/stageside-sub001/internal/taste"
	"github.com/areyoudear/stageside-sub001/internal/ticketing"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	AuthService    *auth.Service
	ProfileService *profile.Service
	RosterService  *roster.Service
	ConcertService *concert.Service
	Ranker         *concert.Ranker
	Scorer         *taste.Scorer
	NotifyService  *notify.Service
	Ticketing      *ticketing.Client
	BackupService  *backup.Service
	Maintenance    *maintenance.Service
	FestivalConfig festival.Config
	GroupFloor     float64
	Logger         *slog.Logger
	BasePath       string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	authService    *auth.Service
	profileService *profile.Service
	rosterService  *roster.Service
	concertService *concert.Service
	ranker         *concert.Ranker
	scorer         *taste.Scorer
	notifyService  *notify.Service
	ticketing      *ticketing.Client
	backupService  *backup.Service
	maintenance    *maintenance.Service
	festivalConfig festival.Config
	groupFloor     float64
	logger         *slog.Logger
	basePath       string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		authService:    deps.AuthService,
		profileService: deps.ProfileService,
		rosterService:  deps.RosterService,
		concertService: deps.ConcertService,
		ranker:         deps.Ranker,
		scorer:         deps.Scorer,
		notifyService:  deps.NotifyService,
		ticketing:      deps.Ticketing,
		backupService:  deps.BackupService,
		maintenance:    deps.Maintenance,
		festivalConfig: deps.FestivalConfig,
		groupFloor:     deps.GroupFloor,
		logger:         deps.Logger,
		basePath:       deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	authMw := middleware.Auth(r.authService)
	mux := http.NewServeMux()
	bp := r.basePath

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("POST "+bp+"/api/v1/auth/register", r.handleRegister)
	mux.HandleFunc("POST "+bp+"/api/v1/auth/login", r.handleLogin)

	// Protected routes (auth required)
	mux.HandleFunc("POST "+bp+"/api/v1/auth/logout", wrapAuth(r.handleLogout, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/auth/me", wrapAuth(r.handleMe, authMw))

	// Profile routes
	mux.HandleFunc("GET "+bp+"/api/v1/profile", wrapAuth(r.handleGetProfile, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/profile/refresh", wrapAuth(r.handleRefreshProfile, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/profile/services", wrapAuth(r.handleListServices, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/profile/services/{service}", wrapAuth(r.handleConnectService, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/profile/services/{service}", wrapAuth(r.handleDisconnectService, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/profile/artists", wrapAuth(r.handleListManualArtists, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/profile/artists", wrapAuth(r.handleAddManualArtist, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/profile/artists/{id}", wrapAuth(r.handleRemoveManualArtist, authMw))

	// Concert routes
	mux.HandleFunc("GET "+bp+"/api/v1/concerts", wrapAuth(r.handleListConcerts, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/concerts/recommended", wrapAuth(r.handleRecommendedConcerts, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/concerts/sync", wrapAuth(r.handleSyncConcerts, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/score/preview", wrapAuth(r.handleScorePreview, authMw))

	// Group routes
	mux.HandleFunc("GET "+bp+"/api/v1/groups", wrapAuth(r.handleListGroups, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/groups", wrapAuth(r.handleCreateGroup, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/groups/{id}", wrapAuth(r.handleDeleteGroup, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/groups/{id}/members", wrapAuth(r.handleListMembers, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/groups/{id}/members", wrapAuth(r.handleAddMember, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/groups/{id}/members/{userId}", wrapAuth(r.handleRemoveMember, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/groups/{id}/concerts", wrapAuth(r.handleGroupConcerts, authMw))

	// Festival routes
	mux.HandleFunc("POST "+bp+"/api/v1/groups/{id}/festivals/{festivalId}/itinerary", wrapAuth(r.handleFestivalItinerary, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/festivals/conflicts", wrapAuth(r.handleFestivalConflicts, authMw))

	// Notification routes
	mux.HandleFunc("GET "+bp+"/api/v1/notify/targets", wrapAuth(r.handleListTargets, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/notify/targets", wrapAuth(r.handleAddTarget, authMw))
	mux.HandleFunc("DELETE "+bp+"/api/v1/notify/targets/{id}", wrapAuth(r.handleRemoveTarget, authMw))

	// Admin routes
	mux.HandleFunc("GET "+bp+"/api/v1/admin/db/status", wrapAuth(r.handleDBStatus, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/admin/db/optimize", wrapAuth(r.handleDBOptimize, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/admin/backups", wrapAuth(r.handleListBackups, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/admin/backups", wrapAuth(r.handleCreateBackup, authMw))

	// Apply logging to all requests
	return middleware.Logging(r.logger)(mux)
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authMw(fn).ServeHTTP(w, r)
	}
}
