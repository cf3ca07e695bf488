package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lornebot/torstats/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTranscriber(t *testing.T, db *database.DB, name string, gamma int64) {
	t.Helper()
	if _, err := db.EnsureTranscriber(name); err != nil {
		t.Fatalf("seeding transcriber: %v", err)
	}
	if err := db.RecordGammaChange(name, nil, gamma); err != nil {
		t.Fatalf("seeding gamma: %v", err)
	}
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	seedTranscriber(t, db, "alice", 120)
	seedTranscriber(t, db, "bob", 3)

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Leaderboard") {
		t.Error("expected 'Leaderboard' in response body")
	}
	if !strings.Contains(body, "/u/alice") {
		t.Error("expected alice in leaderboard")
	}
	// 120 gamma sits in the Teal tier
	if !strings.Contains(body, "Teal") {
		t.Error("expected rank name in leaderboard")
	}
	if strings.Index(body, "/u/alice") > strings.Index(body, "/u/bob") {
		t.Error("expected alice ranked above bob")
	}
}

func TestIndexUnknownPathIs404(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestTranscriberRoute(t *testing.T) {
	db := openTestDB(t)
	seedTranscriber(t, db, "alice", 120)
	_, err := db.ApplyScanBatch(&database.ScanBatch{
		Transcriber: "alice",
		Transcriptions: []database.NewTranscription{
			{CommentID: "c1", Content: "*Image Transcription*\n\n**Bold** text.", Created: "2024-01-15 12:00:00"},
		},
		Counted: 1,
	})
	if err != nil {
		t.Fatalf("seeding transcription: %v", err)
	}

	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/transcriber/alice", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/u/alice") {
		t.Error("expected transcriber name in response")
	}
	if !strings.Contains(body, "120") {
		t.Error("expected gamma count in response")
	}
	// Markdown content is rendered, not escaped
	if !strings.Contains(body, "<strong>Bold</strong>") {
		t.Error("expected rendered markdown in response")
	}
}

func TestTranscriberRouteUnknownUser(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/transcriber/nobody", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	db := openTestDB(t)
	srv, err := New(db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}
