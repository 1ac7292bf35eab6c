package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/areyoudear/stageside-sub001/internal/api/middleware"
	"github.com/areyoudear/stageside-sub001/internal/notify"
)

func (r *Router) handleListTargets(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	targets, err := r.notifyService.Targets(req.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list targets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": targets})
}

func (r *Router) handleAddTarget(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	var body struct {
		URL      string   `json:"url"`
		Events   []string `json:"events"`
		MinScore float64  `json:"min_score"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := r.notifyService.AddTarget(req.Context(), userID, body.URL, body.Events, body.MinScore)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, target)
}

func (r *Router) handleRemoveTarget(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	err := r.notifyService.RemoveTarget(req.Context(), userID, req.PathValue("id"))
	if errors.Is(err, notify.ErrNotFound) {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove target")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
