package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/areyoudear/stageside-sub001/internal/api/middleware"
	"github.com/areyoudear/stageside-sub001/internal/profile"
	"github.com/areyoudear/stageside-sub001/internal/source"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

func (r *Router) handleGetProfile(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	prof, err := r.profileService.CachedOrBuild(req.Context(), userID)
	if err != nil {
		r.logger.Error("loading profile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (r *Router) handleRefreshProfile(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	prof, err := r.profileService.Build(req.Context(), userID)
	if err != nil {
		r.logger.Error("building profile", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build profile")
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (r *Router) handleListServices(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	services, err := r.profileService.ConnectedServices(req.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list services")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (r *Router) handleConnectService(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())
	service := taste.ServiceName(req.PathValue("service"))

	if !validService(service) {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExternalUser string `json:"external_user"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	connected, err := r.profileService.ConnectService(req.Context(), userID, service, source.Credentials{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExternalUser: body.ExternalUser,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to connect service")
		return
	}
	writeJSON(w, http.StatusCreated, connected)
}

func (r *Router) handleDisconnectService(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())
	service := taste.ServiceName(req.PathValue("service"))

	err := r.profileService.DisconnectService(req.Context(), userID, service)
	if errors.Is(err, profile.ErrNotFound) {
		writeError(w, http.StatusNotFound, "service not connected")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disconnect service")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleListManualArtists(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	artists, err := r.profileService.ManualArtists(req.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list artists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": artists})
}

func (r *Router) handleAddManualArtist(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	var body struct {
		Name   string   `json:"name"`
		Genres []string `json:"genres"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	artist, err := r.profileService.AddManualArtist(req.Context(), userID, body.Name, body.Genres)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, artist)
}

func (r *Router) handleRemoveManualArtist(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	err := r.profileService.RemoveManualArtist(req.Context(), userID, req.PathValue("id"))
	if errors.Is(err, profile.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove artist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validService(name taste.ServiceName) bool {
	for _, s := range source.AllServiceNames() {
		if s == name {
			return true
		}
	}
	return false
}
