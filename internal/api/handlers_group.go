package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/areyoudear/stageside-sub001/internal/api/middleware"
	"github.com/areyoudear/stageside-sub001/internal/roster"
)

func (r *Router) handleListGroups(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	groups, err := r.rosterService.GroupsForUser(req.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (r *Router) handleCreateGroup(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := r.rosterService.CreateGroup(req.Context(), userID, body.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (r *Router) handleDeleteGroup(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	err := r.rosterService.DeleteGroup(req.Context(), req.PathValue("id"), userID)
	if errors.Is(err, roster.ErrNotFound) {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete group")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleListMembers(w http.ResponseWriter, req *http.Request) {
	groupID := req.PathValue("id")
	if !r.requireMembership(w, req, groupID) {
		return
	}

	members, err := r.rosterService.Members(req.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (r *Router) handleAddMember(w http.ResponseWriter, req *http.Request) {
	groupID := req.PathValue("id")
	if !r.requireMembership(w, req, groupID) {
		return
	}

	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := r.rosterService.AddMember(req.Context(), groupID, body.UserID)
	if errors.Is(err, roster.ErrNotFound) {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request) {
	groupID := req.PathValue("id")
	if !r.requireMembership(w, req, groupID) {
		return
	}

	err := r.rosterService.RemoveMember(req.Context(), groupID, req.PathValue("userId"))
	if errors.Is(err, roster.ErrNotFound) {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleGroupConcerts(w http.ResponseWriter, req *http.Request) {
	groupID := req.PathValue("id")
	if !r.requireMembership(w, req, groupID) {
		return
	}

	listings, err := r.concertService.Listings(req.Context(), listQueryFromRequest(req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list concerts")
		return
	}

	ranked, err := r.ranker.RankForGroup(req.Context(), groupID, listings, r.groupFloor)
	if err != nil {
		r.logger.Error("ranking group concerts", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rank concerts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"concerts": ranked})
}

// requireMembership rejects callers who do not belong to the group.
func (r *Router) requireMembership(w http.ResponseWriter, req *http.Request, groupID string) bool {
	userID := middleware.UserIDFromContext(req.Context())
	ok, err := r.rosterService.IsMember(req.Context(), groupID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "not a group member")
		return false
	}
	return true
}
