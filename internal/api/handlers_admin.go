package api

import "net/http"

func (r *Router) handleDBStatus(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance not configured")
		return
	}
	status, err := r.maintenance.Status(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read database status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (r *Router) handleDBOptimize(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance not configured")
		return
	}
	if err := r.maintenance.Optimize(req.Context()); err != nil {
		r.logger.Error("manual optimize failed", "error", err)
		writeError(w, http.StatusInternalServerError, "optimize failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleListBackups(w http.ResponseWriter, _ *http.Request) {
	if r.backupService == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	backups, err := r.backupService.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": backups})
}

func (r *Router) handleCreateBackup(w http.ResponseWriter, req *http.Request) {
	if r.backupService == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	info, err := r.backupService.Backup(req.Context())
	if err != nil {
		r.logger.Error("manual backup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, info)
}
