package ticketing

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/v1/events":
			w.Write([]byte(`{"events":[
				{"id":"ev-1","title":"Tame Impala at the Armory","artists":["Tame Impala"],
				 "genres":["psych rock"],"venue":"The Armory","city":"Minneapolis",
				 "starts_at":"2026-09-12T20:00:00Z","url":"https://tickets.example.com/ev-1"},
				{"id":"ev-2","title":"Jazz Night","artists":["Kamasi Washington"],
				 "genres":["jazz"],"venue":"Dakota","city":"Minneapolis",
				 "starts_at":"2026-09-13T19:00:00Z","url":"https://tickets.example.com/ev-2"}
			]}`))

		case "/v1/festivals/fest-1/lineup":
			w.Write([]byte(`{"festival_id":"fest-1","name":"Riverbend","artists":[
				{"name":"Headliner","genres":["rock"],"day":"friday","stage":"main",
				 "start_time":"21:00","end_time":"23:00"},
				{"name":"Opener","genres":["indie"],"day":"friday","stage":"main",
				 "start_time":"19:00","end_time":"20:30"}
			]}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := NewClient(srv.URL, "test-key", testLogger())

	events, err := c.Events(context.Background(), Query{City: "Minneapolis"})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ExternalID != "ev-1" || events[0].Venue != "The Armory" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[0].StartsAt.IsZero() {
		t.Error("StartsAt not parsed")
	}
}

func TestEventsBadKey(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := NewClient(srv.URL, "wrong-key", testLogger())

	if _, err := c.Events(context.Background(), Query{}); err == nil {
		t.Fatal("expected an error for a rejected API key")
	}
}

func TestFestivalLineup(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := NewClient(srv.URL, "test-key", testLogger())

	lineup, err := c.FestivalLineup(context.Background(), "fest-1")
	if err != nil {
		t.Fatalf("FestivalLineup: %v", err)
	}
	if lineup.Name != "Riverbend" {
		t.Errorf("Name = %q, want Riverbend", lineup.Name)
	}
	if len(lineup.Artists) != 2 {
		t.Fatalf("got %d lineup artists, want 2", len(lineup.Artists))
	}
	if lineup.Artists[0].Stage != "main" || lineup.Artists[0].StartTime != "21:00" {
		t.Errorf("Artists[0] = %+v", lineup.Artists[0])
	}
}

func TestFestivalLineupMissingID(t *testing.T) {
	c := NewClient("http://localhost", "k", testLogger())
	if _, err := c.FestivalLineup(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an empty festival id")
	}
}
