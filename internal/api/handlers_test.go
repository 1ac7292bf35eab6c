package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/areyoudear/stageside-sub001/internal/auth"
	"github.com/areyoudear/stageside-sub001/internal/backup"
	"github.com/areyoudear/stageside-sub001/internal/concert"
	"github.com/areyoudear/stageside-sub001/internal/database"
	"github.com/areyoudear/stageside-sub001/internal/encryption"
	"github.com/areyoudear/stageside-sub001/internal/festival"
	"github.com/areyoudear/stageside-sub001/internal/maintenance"
	"github.com/areyoudear/stageside-sub001/internal/notify"
	"github.com/areyoudear/stageside-sub001/internal/profile"
	"github.com/areyoudear/stageside-sub001/internal/roster"
	"github.com/areyoudear/stageside-sub001/internal/source"
	"github.com/areyoudear/stageside-sub001/internal/taste"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db := setupTestDB(t)
	logger := testLogger()

	enc, _, err := encryption.NewEncryptor("")
	if err != nil {
		t.Fatalf("creating encryptor: %v", err)
	}

	authSvc := auth.NewService(db)
	profiles := profile.NewService(db, source.NewRegistry(), enc, nil, logger)
	groups := roster.NewService(db)
	concerts := concert.NewService(db, nil, logger)
	scorer := taste.DefaultScorer()
	ranker := concert.NewRanker(scorer, profiles, groups, nil, logger)

	router := NewRouter(RouterDeps{
		AuthService:    authSvc,
		ProfileService: profiles,
		RosterService:  groups,
		ConcertService: concerts,
		Ranker:         ranker,
		Scorer:         scorer,
		NotifyService:  notify.NewService(db),
		BackupService:  backup.NewService(db, filepath.Join(t.TempDir(), "backups"), 7, logger),
		Maintenance:    maintenance.NewService(db, ":memory:", logger),
		FestivalConfig: festival.Config{MaxPerDay: 6, RestBreakMinutes: 0},
		Logger:         logger,
	})
	return router.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, handler http.Handler, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "test password"}
	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestRouter(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	handler := newTestRouter(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	handler := newTestRouter(t)
	token := registerAndLogin(t, handler, "casey")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["user_id"] == "" {
		t.Error("me response missing user_id")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	handler := newTestRouter(t)
	registerAndLogin(t, handler, "casey")

	creds := map[string]string{"username": "casey", "password": "other"}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", "", creds)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestManualArtistAndScorePreview(t *testing.T) {
	handler := newTestRouter(t)
	token := registerAndLogin(t, handler, "casey")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/profile/artists", token,
		map[string]any{"name": "Tame Impala", "genres": []string{"psych rock"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add artist status = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/profile/refresh", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/score/preview", token,
		map[string]any{"artists": []string{"Tame Impala"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d: %s", rec.Code, rec.Body.String())
	}

	var result taste.MatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.MatchType != taste.MatchDirectArtist {
		t.Errorf("MatchType = %q, want direct-artist", result.MatchType)
	}
	if result.Score <= 0 {
		t.Errorf("Score = %v, want positive", result.Score)
	}
}

func TestGroupMembershipEnforced(t *testing.T) {
	handler := newTestRouter(t)
	owner := registerAndLogin(t, handler, "casey")
	outsider := registerAndLogin(t, handler, "jordan")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/groups", owner, map[string]string{"name": "Crew"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d", rec.Code)
	}
	var group roster.Group
	_ = json.Unmarshal(rec.Body.Bytes(), &group)

	if rec := doJSON(t, handler, http.MethodGet, "/api/v1/groups/"+group.ID+"/members", outsider, nil); rec.Code != http.StatusForbidden {
		t.Errorf("outsider members status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/v1/groups/"+group.ID+"/members", owner, nil); rec.Code != http.StatusOK {
		t.Errorf("owner members status = %d, want 200", rec.Code)
	}
}

func TestFestivalConflictsEndpoint(t *testing.T) {
	handler := newTestRouter(t)
	token := registerAndLogin(t, handler, "casey")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/festivals/conflicts", token, map[string]any{
		"lineup": []map[string]string{
			{"name": "A", "day": "friday", "stage": "main", "start_time": "20:00", "end_time": "21:00"},
			{"name": "B", "day": "friday", "stage": "tent", "start_time": "20:30", "end_time": "21:30"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Conflicts []festival.Conflict `json:"conflicts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Conflicts) != 1 || resp.Conflicts[0].OverlapMinutes != 30 {
		t.Errorf("conflicts = %+v, want one 30-minute overlap", resp.Conflicts)
	}
}

func TestFestivalItineraryFromBody(t *testing.T) {
	handler := newTestRouter(t)
	token := registerAndLogin(t, handler, "casey")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/groups", token, map[string]string{"name": "Crew"})
	var group roster.Group
	_ = json.Unmarshal(rec.Body.Bytes(), &group)

	doJSON(t, handler, http.MethodPost, "/api/v1/profile/artists", token,
		map[string]any{"name": "Headliner"})
	doJSON(t, handler, http.MethodPost, "/api/v1/profile/refresh", token, nil)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/groups/"+group.ID+"/festivals/fest-1/itinerary", token, map[string]any{
		"lineup": []map[string]string{
			{"name": "Headliner", "day": "friday", "stage": "main", "start_time": "21:00", "end_time": "23:00"},
			{"name": "Other Act", "day": "friday", "stage": "tent", "start_time": "19:00", "end_time": "20:00"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var itinerary festival.GeneratedItinerary
	if err := json.Unmarshal(rec.Body.Bytes(), &itinerary); err != nil {
		t.Fatalf("decoding itinerary: %v", err)
	}
	if itinerary.Scheduled != 2 {
		t.Errorf("Scheduled = %d, want 2", itinerary.Scheduled)
	}
	if len(itinerary.Days) != 1 {
		t.Fatalf("Days = %d, want 1", len(itinerary.Days))
	}

	var foundMustSee bool
	for _, slot := range itinerary.Days[0].Slots {
		if slot.Artist.Name == "Headliner" && slot.Priority == festival.PriorityMustSee {
			foundMustSee = true
		}
	}
	if !foundMustSee {
		t.Error("expected the matched headliner as a must-see slot")
	}
}

func TestAdminEndpoints(t *testing.T) {
	handler := newTestRouter(t)
	token := registerAndLogin(t, handler, "casey")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/admin/db/status", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d: %s", rec.Code, rec.Body.String())
	}
	var status maintenance.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.PageCount <= 0 {
		t.Errorf("PageCount = %d, want positive", status.PageCount)
	}

	if rec := doJSON(t, handler, http.MethodPost, "/api/v1/admin/backups", token, nil); rec.Code != http.StatusCreated {
		t.Fatalf("create backup = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/admin/backups", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list backups = %d", rec.Code)
	}
	var resp struct {
		Backups []backup.Info `json:"backups"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding backups: %v", err)
	}
	if len(resp.Backups) != 1 {
		t.Errorf("backups = %d, want 1", len(resp.Backups))
	}
}

func TestNotifyTargets(t *testing.T) {
	handler := newTestRouter(t)
	token := registerAndLogin(t, handler, "casey")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/notify/targets", token, map[string]any{
		"url":    "https://hooks.example.com/x",
		"events": []string{"concert.matched"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add target status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/notify/targets", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list targets status = %d", rec.Code)
	}
}
