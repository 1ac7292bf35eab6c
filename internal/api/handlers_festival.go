package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/areyoudear/stageside-sub001/internal/festival"
)

// handleFestivalItinerary builds a group itinerary for a festival. The
// lineup comes from the request body when provided, otherwise from the
// ticketing feed.
func (r *Router) handleFestivalItinerary(w http.ResponseWriter, req *http.Request) {
	groupID := req.PathValue("id")
	if !r.requireMembership(w, req, groupID) {
		return
	}

	var body struct {
		Lineup           []festival.LineupArtist `json:"lineup"`
		MaxPerDay        int                     `json:"max_per_day"`
		RestBreakMinutes int                     `json:"rest_break_minutes"`
		TieBreak         string                  `json:"tie_break"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lineup := body.Lineup
	if len(lineup) == 0 {
		if r.ticketing == nil {
			writeError(w, http.StatusServiceUnavailable, "ticketing feed not configured")
			return
		}
		fetched, err := r.ticketing.FestivalLineup(req.Context(), req.PathValue("festivalId"))
		if err != nil {
			r.logger.Error("fetching festival lineup", "error", err)
			writeError(w, http.StatusBadGateway, "failed to fetch lineup")
			return
		}
		lineup = fetched.Artists
	}

	cfg := r.festivalConfig
	if body.MaxPerDay > 0 {
		cfg.MaxPerDay = body.MaxPerDay
	}
	if body.RestBreakMinutes > 0 {
		cfg.RestBreakMinutes = body.RestBreakMinutes
	}
	if body.TieBreak != "" {
		cfg.TieBreak = festival.TieBreakPolicy(body.TieBreak)
	}

	matches, err := r.ranker.LineupMatches(req.Context(), groupID, lineup)
	if err != nil {
		r.logger.Error("scoring lineup", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to score lineup")
		return
	}

	itinerary, err := festival.BuildItinerary(lineup, matches, cfg)
	if errors.Is(err, festival.ErrInvalidConfig) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build itinerary")
		return
	}
	writeJSON(w, http.StatusOK, itinerary)
}

// handleFestivalConflicts reports schedule conflicts in a submitted lineup
// without needing a group or profile.
func (r *Router) handleFestivalConflicts(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Lineup []festival.LineupArtist `json:"lineup"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conflicts := festival.DetectConflicts(body.Lineup)
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}
