package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/areyoudear/stageside-sub001/internal/api/middleware"
	"github.com/areyoudear/stageside-sub001/internal/concert"
	"github.com/areyoudear/stageside-sub001/internal/ticketing"
)

func (r *Router) handleListConcerts(w http.ResponseWriter, req *http.Request) {
	listings, err := r.concertService.Listings(req.Context(), listQueryFromRequest(req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list concerts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"concerts": listings})
}

func (r *Router) handleRecommendedConcerts(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	listings, err := r.concertService.Listings(req.Context(), listQueryFromRequest(req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list concerts")
		return
	}

	ranked, err := r.ranker.RankForUser(req.Context(), userID, listings)
	if err != nil {
		r.logger.Error("ranking concerts", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rank concerts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"concerts": ranked})
}

func (r *Router) handleSyncConcerts(w http.ResponseWriter, req *http.Request) {
	if r.ticketing == nil {
		writeError(w, http.StatusServiceUnavailable, "ticketing feed not configured")
		return
	}

	var body struct {
		City string `json:"city"`
	}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}

	events, err := r.ticketing.Events(req.Context(), ticketing.Query{
		City: body.City,
		From: time.Now().UTC(),
	})
	if err != nil {
		r.logger.Error("fetching ticketing events", "error", err)
		writeError(w, http.StatusBadGateway, "ticketing feed unavailable")
		return
	}

	count, err := r.concertService.SyncListings(req.Context(), events)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store listings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": count})
}

// handleScorePreview scores an ad-hoc concert payload against the caller's
// profile without storing anything.
func (r *Router) handleScorePreview(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	var body struct {
		Artists []string `json:"artists"`
		Genres  []string `json:"genres"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prof, err := r.profileService.CachedOrBuild(req.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	result := r.scorer.Score(body.Artists, body.Genres, prof)
	writeJSON(w, http.StatusOK, result)
}

func listQueryFromRequest(req *http.Request) concert.ListQuery {
	q := concert.ListQuery{City: req.URL.Query().Get("city")}
	if from := req.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			q.From = t
		}
	}
	return q
}
